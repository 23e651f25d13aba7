// Package memory provides a mutex-guarded Record Store for tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

// Store keeps users, facilities and reservations in memory. A transaction
// holds the write lock for its whole duration and stages its changes, so
// a failed transaction leaves no trace.
type Store struct {
	mu           sync.RWMutex
	users        map[string]entities.User
	facilities   map[string]entities.Facility
	reservations map[int64]entities.Reservation
	nextID       int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:        make(map[string]entities.User),
		facilities:   make(map[string]entities.Facility),
		reservations: make(map[int64]entities.Reservation),
		nextID:       1,
	}
}

// Users returns the store as a UserRepository
func (s *Store) Users() repositories.UserRepository { return userRepo{s} }

// Facilities returns the store as a FacilityRepository
func (s *Store) Facilities() repositories.FacilityRepository { return facilityRepo{s} }

// Reservations returns the store as a ReservationRepository
func (s *Store) Reservations() repositories.ReservationRepository { return reservationRepo{s} }

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *entities.User) error {
	if user.PasswordHash == "" {
		return apperrors.NewValidationError("user " + user.ID + " has no password hash")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.ID]; exists {
		return apperrors.NewValidationError("user " + user.ID + " or email " + user.Email + " already exists")
	}
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperrors.NewValidationError("user " + user.ID + " or email " + user.Email + " already exists")
		}
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.CodeUserNotFound, "User not found")
	}
	return &u, nil
}

type facilityRepo struct{ s *Store }

func (r facilityRepo) Create(_ context.Context, facility *entities.Facility) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.facilities[facility.ID]; exists {
		return apperrors.NewValidationError("facility " + facility.ID + " already exists")
	}
	if facility.CreatedAt.IsZero() {
		facility.CreatedAt = time.Now().UTC()
	}
	r.s.facilities[facility.ID] = cloneFacility(*facility)
	return nil
}

func (r facilityRepo) GetByID(_ context.Context, id string) (*entities.Facility, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.facilities[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.CodeFacilityNotFound, "Facility not found")
	}
	out := cloneFacility(f)
	return &out, nil
}

func (r facilityRepo) Search(_ context.Context, filter repositories.FacilityFilter) (*repositories.FacilityPage, error) {
	filter = filter.Normalized()

	r.s.mu.RLock()
	matches := r.s.match(filter)
	r.s.mu.RUnlock()

	page := &repositories.FacilityPage{
		Facilities: []*entities.Facility{},
		TotalCount: len(matches),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.Offset < len(matches) {
		end := filter.Offset + filter.Limit
		if end > len(matches) {
			end = len(matches)
		}
		page.Facilities = matches[filter.Offset:end]
	}
	return page, nil
}

func (r facilityRepo) SearchAll(_ context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.match(filter.Normalized()), nil
}

func (r facilityRepo) ListAll(_ context.Context) ([]*entities.Facility, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.match(repositories.FacilityFilter{}), nil
}

// match returns every facility satisfying filter, ordered by ID. Callers hold mu.
func (s *Store) match(filter repositories.FacilityFilter) []*entities.Facility {
	name := strings.ToLower(filter.Name)
	tokens := repositories.LocationTokens(filter.Location)

	out := []*entities.Facility{}
	for _, f := range s.facilities {
		if name != "" && !strings.Contains(strings.ToLower(f.Name), name) {
			continue
		}
		if filter.FacilityType != "" && f.FacilityType != filter.FacilityType {
			continue
		}
		if filter.MinCapacity != nil && f.Capacity < *filter.MinCapacity {
			continue
		}
		if len(tokens) > 0 && !matchesAllPrefixes(repositories.LocationTokens(f.Location), tokens) {
			continue
		}
		c := cloneFacility(f)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// matchesAllPrefixes reports whether every query token prefixes some word
func matchesAllPrefixes(words, tokens []string) bool {
	for _, t := range tokens {
		found := false
		for _, w := range words {
			if strings.HasPrefix(w, t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func cloneFacility(f entities.Facility) entities.Facility {
	if f.Equipment != nil {
		f.Equipment = append([]byte(nil), f.Equipment...)
	}
	if f.ExternalID != nil {
		id := *f.ExternalID
		f.ExternalID = &id
	}
	return f
}

type reservationRepo struct{ s *Store }

func (r reservationRepo) GetByID(_ context.Context, id int64) (*entities.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res, ok := r.s.reservations[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.CodeReservationNotFound, "Reservation not found")
	}
	return &res, nil
}

func (r reservationRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.ReservationTx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx := &memTx{
		s:        r.s,
		inserted: make(map[int64]entities.Reservation),
		deleted:  make(map[int64]bool),
		nextID:   r.s.nextID,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for id := range tx.deleted {
		delete(r.s.reservations, id)
	}
	for id, res := range tx.inserted {
		r.s.reservations[id] = res
	}
	r.s.nextID = tx.nextID
	return nil
}

// memTx stages changes until WithinTx commits them. The store's write lock is
// held throughout.
type memTx struct {
	s        *Store
	inserted map[int64]entities.Reservation
	deleted  map[int64]bool
	nextID   int64
}

func (t *memTx) LockFacility(_ context.Context, facilityID string) (*entities.Facility, error) {
	f, ok := t.s.facilities[facilityID]
	if !ok {
		return nil, nil
	}
	out := cloneFacility(f)
	return &out, nil
}

func (t *memTx) visible(id int64) (entities.Reservation, bool) {
	if t.deleted[id] {
		return entities.Reservation{}, false
	}
	if res, ok := t.inserted[id]; ok {
		return res, true
	}
	res, ok := t.s.reservations[id]
	return res, ok
}

func (t *memTx) HasOverlap(_ context.Context, facilityID string, start, end time.Time) (bool, error) {
	check := func(res entities.Reservation) bool {
		return res.FacilityID == facilityID && res.Overlaps(start, end)
	}
	for id, res := range t.s.reservations {
		if !t.deleted[id] && check(res) {
			return true, nil
		}
	}
	for _, res := range t.inserted {
		if check(res) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) Insert(_ context.Context, reservation *entities.Reservation) error {
	reservation.ID = t.nextID
	t.nextID++
	t.inserted[reservation.ID] = *reservation
	return nil
}

func (t *memTx) GetForUpdate(_ context.Context, id int64) (*entities.Reservation, error) {
	res, ok := t.visible(id)
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (t *memTx) Delete(_ context.Context, id int64) error {
	if _, ok := t.visible(id); !ok {
		return apperrors.NewNotFoundError(apperrors.CodeReservationNotFound, "Reservation not found")
	}
	delete(t.inserted, id)
	t.deleted[id] = true
	return nil
}
