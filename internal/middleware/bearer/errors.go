package bearer

import (
	"fmt"

	"auth_api/internal/auth"
)

var errNotAuthenticated = fmt.Errorf("not authenticated: %w", auth.ErrTokenInvalid)
