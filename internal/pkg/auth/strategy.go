package auth

import (
	"time"

	"github.com/campuseats/canteen/internal/domain/model"
)

// Strategy verifies bearer tokens issued by the campus identity service and,
// for tests and tooling, can issue them.
type Strategy interface {
	IssueToken(userID int64, role model.Role) (string, error)
	ParseToken(token string) (int64, model.Role, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
