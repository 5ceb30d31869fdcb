package users

import (
	"context"
	"time"
)

type StoreAPI interface {
	Create(ctx context.Context, e Employee) (int64, error)
	Get(ctx context.Context, id int64) (Employee, error)
	GetByEmail(ctx context.Context, email string) (Employee, error)
	List(ctx context.Context, filter Filter) ([]Employee, error)
	Update(ctx context.Context, e Employee) error
	SetStatus(ctx context.Context, id int64, to Status, from []Status) error
	SetPosition(ctx context.Context, id int64, position string) error
	Delete(ctx context.Context, id int64) error
	CreateInvite(ctx context.Context, inv Invite) (int64, error)
	GetInvite(ctx context.Context, code string) (Invite, error)
	Redeem(ctx context.Context, code string, e Employee, now time.Time) (int64, error)
}
