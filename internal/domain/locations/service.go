package locations

import "context"

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) Create(ctx context.Context, loc JobLocation) (JobLocation, error) {
	loc.IsActive = true
	if err := normalize(&loc); err != nil {
		return JobLocation{}, err
	}
	id, err := s.Store.Create(ctx, loc)
	if err != nil {
		return JobLocation{}, err
	}
	return s.Store.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (JobLocation, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]JobLocation, error) {
	return s.Store.List(ctx, filter)
}

// Update replaces every editable field, contacts included. Contacts not
// present in loc are removed.
func (s *Service) Update(ctx context.Context, loc JobLocation) (JobLocation, error) {
	if loc.ID <= 0 {
		return JobLocation{}, ErrNotFound
	}
	if err := normalize(&loc); err != nil {
		return JobLocation{}, err
	}
	if err := s.Store.Update(ctx, loc); err != nil {
		return JobLocation{}, err
	}
	return s.Store.Get(ctx, loc.ID)
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.Store.SetActive(ctx, id, active)
}

func (s *Service) AssignSupervisor(ctx context.Context, id int64, supervisorID *int64) error {
	if supervisorID != nil && *supervisorID <= 0 {
		supervisorID = nil
	}
	return s.Store.SetSupervisor(ctx, id, supervisorID)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.Store.Delete(ctx, id)
}
