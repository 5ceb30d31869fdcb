package locations

import "context"

type StoreAPI interface {
	Create(ctx context.Context, loc JobLocation) (int64, error)
	Get(ctx context.Context, id int64) (JobLocation, error)
	List(ctx context.Context, filter Filter) ([]JobLocation, error)
	Update(ctx context.Context, loc JobLocation) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetSupervisor(ctx context.Context, id int64, supervisorID *int64) error
	Delete(ctx context.Context, id int64) error
}

// Sealer protects lockbox codes at rest.
type Sealer interface {
	EncryptString(value string) ([]byte, error)
	DecryptString(sealed []byte) (string, error)
}
