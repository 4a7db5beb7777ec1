package views

import (
	"context"

	"github.com/AdamBeresnev/round-robin-app/internal/middleware"
	users "github.com/AdamBeresnev/round-robin-app/internal/user"
)

func GetUser(ctx context.Context) *users.User {
	return middleware.GetAuthenticatedUser(ctx)
}
