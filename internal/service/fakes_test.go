package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/noah-isme/roadwatch-api/internal/models"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// memStore backs every fake repository. fakeTx snapshots it so failed
// transactions leave no trace.
type memStore struct {
	users     map[string]models.User
	accidents map[string]models.Accident
	comments  map[int64]models.Comment
	routes    map[string]models.Route
	checkIns  []models.CheckIn
	logs      []models.PointLog
	seq       int
	fail      map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]models.User{},
		accidents: map[string]models.Accident{},
		comments:  map[int64]models.Comment{},
		routes:    map[string]models.Route{},
		fail:      map[string]error{},
	}
}

func (m *memStore) err(op string) error { return m.fail[op] }

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addUser(u models.User) *models.User {
	if u.ID == "" {
		u.ID = m.nextID("user")
	}
	if u.Status == "" {
		u.Status = models.UserStatusApproved
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	m.users[u.ID] = u
	return &u
}

func (m *memStore) user(id string) models.User { return m.users[id] }

func (m *memStore) snapshot() *memStore {
	c := newMemStore()
	c.seq = m.seq
	c.fail = m.fail
	for k, v := range m.users {
		v.Badges = append(v.Badges[:0:0], v.Badges...)
		c.users[k] = v
	}
	for k, v := range m.accidents {
		c.accidents[k] = v
	}
	for k, v := range m.comments {
		c.comments[k] = v
	}
	for k, v := range m.routes {
		c.routes[k] = v
	}
	c.checkIns = append(c.checkIns, m.checkIns...)
	c.logs = append(c.logs, m.logs...)
	return c
}

func (m *memStore) restore(from *memStore) {
	m.users, m.accidents, m.comments, m.routes = from.users, from.accidents, from.comments, from.routes
	m.checkIns, m.logs, m.seq = from.checkIns, from.logs, from.seq
}

type txKey struct{}

type fakeTx struct {
	store     *memStore
	commits   int
	rollbacks int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	snap := f.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		f.store.restore(snap)
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

type fakeUsers struct{ *memStore }

func (f fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	if err := f.err("users.FindByID"); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (f fakeUsers) FindByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	return f.FindByID(ctx, id)
}

func (f fakeUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeUsers) UsernameTaken(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeUsers) EmailTaken(_ context.Context, email string) (bool, error) {
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeUsers) BadgeNumberTaken(_ context.Context, badge string) (bool, error) {
	for _, u := range f.users {
		if u.BadgeNumber != nil && *u.BadgeNumber == badge {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeUsers) Create(_ context.Context, user *models.User) error {
	if err := f.err("users.Create"); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = f.nextID("user")
	}
	f.users[user.ID] = *user
	return nil
}

func (f fakeUsers) update(id string, fn func(u *models.User)) error {
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	fn(&u)
	f.users[id] = u
	return nil
}

func (f fakeUsers) UpdateStatus(_ context.Context, id string, status models.UserStatus) error {
	return f.update(id, func(u *models.User) { u.Status = status })
}

func (f fakeUsers) UpdateRoleAndStatus(_ context.Context, id string, role models.Role, status models.UserStatus) error {
	return f.update(id, func(u *models.User) { u.Role, u.Status = role, status })
}

func (f fakeUsers) UpdateScore(_ context.Context, id string, points int, badges []string) error {
	if err := f.err("users.UpdateScore"); err != nil {
		return err
	}
	return f.update(id, func(u *models.User) { u.Points, u.Badges = points, badges })
}

func (f fakeUsers) SetBannedUntil(_ context.Context, id string, until *time.Time) error {
	return f.update(id, func(u *models.User) { u.BannedUntil = until })
}

func (f fakeUsers) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.users, id)
	return nil
}

func (f fakeUsers) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range f.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, len(out), nil
}

func (f fakeUsers) ListPending(ctx context.Context) ([]models.User, error) {
	status := models.UserStatusPending
	out, _, err := f.List(ctx, models.UserFilter{Status: &status})
	return out, err
}

func (f fakeUsers) TopByPoints(_ context.Context, limit int) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Username < out[j].Username
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeAccidents struct{ *memStore }

func (f fakeAccidents) Create(_ context.Context, a *models.Accident) error {
	if err := f.err("accidents.Create"); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = f.nextID("accident")
	}
	f.accidents[a.ID] = *a
	return nil
}

func (f fakeAccidents) FindByID(_ context.Context, id string) (*models.Accident, error) {
	a, ok := f.accidents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (f fakeAccidents) FindByIDForUpdate(ctx context.Context, id string) (*models.Accident, error) {
	return f.FindByID(ctx, id)
}

func (f fakeAccidents) detail(a models.Accident) models.AccidentDetail {
	d := models.AccidentDetail{Accident: a}
	if a.UserID != nil {
		if u, ok := f.users[*a.UserID]; ok {
			name, role := u.Username, u.Role
			d.ReporterUsername, d.ReporterRole = &name, &role
		}
	}
	if a.VerifiedBy != nil {
		if u, ok := f.users[*a.VerifiedBy]; ok {
			name, role := u.Username, u.Role
			d.VerifierUsername, d.VerifierRole = &name, &role
		}
	}
	return d
}

func (f fakeAccidents) FindDetail(_ context.Context, id string) (*models.AccidentDetail, error) {
	a, ok := f.accidents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := f.detail(a)
	return &d, nil
}

func (f fakeAccidents) ListAll(_ context.Context, filter models.AccidentFilter) ([]models.AccidentDetail, error) {
	var out []models.AccidentDetail
	for _, a := range f.accidents {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		out = append(out, f.detail(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeAccidents) List(ctx context.Context, filter models.AccidentFilter) ([]models.AccidentDetail, int, error) {
	out, err := f.ListAll(ctx, filter)
	return out, len(out), err
}

func (f fakeAccidents) CountByUser(_ context.Context, userID string) (int, error) {
	n := 0
	for _, a := range f.accidents {
		if a.UserID != nil && *a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f fakeAccidents) LatestByUser(_ context.Context, userID string) (*time.Time, error) {
	var latest *time.Time
	for _, a := range f.accidents {
		if a.UserID == nil || *a.UserID != userID {
			continue
		}
		if latest == nil || a.CreatedAt.After(*latest) {
			t := a.CreatedAt
			latest = &t
		}
	}
	return latest, nil
}

func (f fakeAccidents) UpdateStatus(_ context.Context, id string, status models.AccidentStatus, verifiedBy string) error {
	a, ok := f.accidents[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status, a.VerifiedBy = status, &verifiedBy
	f.accidents[id] = a
	return nil
}

func (f fakeAccidents) Delete(_ context.Context, id string) error {
	if err := f.err("accidents.Delete"); err != nil {
		return err
	}
	if _, ok := f.accidents[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.accidents, id)
	return nil
}

type fakeComments struct{ *memStore }

func (f fakeComments) Create(_ context.Context, c *models.Comment) error {
	f.comments[c.ID] = *c
	return nil
}

func (f fakeComments) FindByID(_ context.Context, id int64) (*models.Comment, error) {
	c, ok := f.comments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f fakeComments) ListByAccident(_ context.Context, accidentID string) ([]models.CommentDetail, error) {
	var out []models.CommentDetail
	for _, c := range f.comments {
		if c.AccidentID != accidentID {
			continue
		}
		d := models.CommentDetail{Comment: c}
		if c.UserID != nil {
			if u, ok := f.users[*c.UserID]; ok {
				name, role := u.Username, u.Role
				d.AuthorUsername, d.AuthorRole = &name, &role
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeComments) Delete(_ context.Context, id int64) error {
	if _, ok := f.comments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.comments, id)
	return nil
}

func (f fakeComments) DeleteByAccident(_ context.Context, accidentID string) error {
	for id, c := range f.comments {
		if c.AccidentID == accidentID {
			delete(f.comments, id)
		}
	}
	return nil
}

type fakeRoutes struct{ *memStore }

func (f fakeRoutes) Create(_ context.Context, r *models.Route) error {
	if r.ID == "" {
		r.ID = f.nextID("route")
	}
	f.routes[r.ID] = *r
	return nil
}

func (f fakeRoutes) FindByID(_ context.Context, id string) (*models.Route, error) {
	r, ok := f.routes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (f fakeRoutes) ListByAccident(_ context.Context, accidentID string) ([]models.Route, error) {
	var out []models.Route
	for _, r := range f.routes {
		if r.AccidentID == accidentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RouteName < out[j].RouteName })
	return out, nil
}

func (f fakeRoutes) SetClosed(_ context.Context, id string, closed bool) error {
	r, ok := f.routes[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.IsClosed = closed
	f.routes[id] = r
	return nil
}

func (f fakeRoutes) DeleteByAccident(_ context.Context, accidentID string) error {
	if err := f.err("routes.DeleteByAccident"); err != nil {
		return err
	}
	for id, r := range f.routes {
		if r.AccidentID == accidentID {
			delete(f.routes, id)
		}
	}
	return nil
}

type fakeCheckIns struct{ *memStore }

func (f fakeCheckIns) Create(_ context.Context, c *models.CheckIn) error {
	if c.ID == "" {
		c.ID = f.nextID("checkin")
	}
	f.checkIns = append(f.checkIns, *c)
	return nil
}

func (f fakeCheckIns) ListRecent(_ context.Context, limit int) ([]models.CheckIn, error) {
	out := make([]models.CheckIn, 0, len(f.checkIns))
	for i := len(f.checkIns) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.checkIns[i])
	}
	return out, nil
}

type fakeLedger struct{ *memStore }

func (f fakeLedger) Create(_ context.Context, entry *models.PointLog) error {
	if err := f.err("ledger.Create"); err != nil {
		return err
	}
	entry.ID = f.nextID("log")
	f.logs = append(f.logs, *entry)
	return nil
}

func (f fakeLedger) ListByUser(_ context.Context, userID string, limit int) ([]models.PointLog, error) {
	var out []models.PointLog
	for i := len(f.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.logs[i].UserID == userID {
			out = append(out, f.logs[i])
		}
	}
	return out, nil
}

type fakePhotos struct {
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func (f *fakePhotos) Save(filename string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[filename] = buf.Bytes()
	return filename, nil
}

func (f *fakePhotos) Delete(filename string) error {
	f.deleted = append(f.deleted, filename)
	delete(f.saved, filename)
	return nil
}

type fakeNotifier struct {
	notified []string
	err      error
}

func (f *fakeNotifier) NotifyAdminApplication(_ context.Context, user *models.User) error {
	f.notified = append(f.notified, user.Username)
	return f.err
}

type fakeBlocklist struct {
	revoked map[string]time.Duration
	err     error
}

func (f *fakeBlocklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	if f.revoked == nil {
		f.revoked = map[string]time.Duration{}
	}
	f.revoked[jti] = ttl
	return nil
}

func (f *fakeBlocklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := f.revoked[jti]
	return ok, nil
}

type sequenceIDs struct{ next int64 }

func (s *sequenceIDs) Next() int64 {
	s.next++
	return s.next
}

var errBoom = errors.New("boom")

// testEnv wires every service against one memStore.
type testEnv struct {
	store     *memStore
	tx        *fakeTx
	photos    *fakePhotos
	notifier  *fakeNotifier
	points    *PointsService
	users     *UserService
	accidents *AccidentService
	comments  *CommentService
	checkIns  *CheckInService
	routes    *RouteService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	tx := &fakeTx{store: store}
	env := &testEnv{store: store, tx: tx, photos: &fakePhotos{}, notifier: &fakeNotifier{}}

	env.points = NewPointsService(tx, fakeUsers{store}, fakeLedger{store}, nil, nil)
	env.points.now = fixedClock

	env.users = NewUserService(tx, fakeUsers{store}, fakeLedger{store}, env.notifier, nil, nil, UserConfig{AdminInviteCode: "letmein", BcryptCost: 4})
	env.users.now = fixedClock

	env.accidents = NewAccidentService(tx, fakeAccidents{store}, fakeComments{store}, fakeRoutes{store}, fakeUsers{store}, env.photos, env.points, nil, nil, nil,
		AccidentConfig{Cooldown: 2 * time.Minute, MaxPhotoBytes: 1024})
	env.accidents.now = fixedClock

	env.comments = NewCommentService(fakeComments{store}, fakeAccidents{store}, fakeUsers{store}, env.points, &sequenceIDs{}, nil, nil)
	env.comments.now = fixedClock

	env.checkIns = NewCheckInService(tx, fakeCheckIns{store}, env.points, nil, nil)
	env.checkIns.now = fixedClock

	env.routes = NewRouteService(fakeRoutes{store}, fakeAccidents{store}, nil, nil)
	return env
}

func (e *testEnv) addAccident(owner *models.User, status models.AccidentStatus) models.Accident {
	a := models.Accident{
		ID:          e.store.nextID("accident"),
		Latitude:    -6.2,
		Longitude:   106.8,
		Description: "Two cars collided at the junction",
		Severity:    3,
		Status:      status,
		CreatedAt:   fixedNow.Add(-time.Hour),
	}
	if owner != nil {
		a.UserID = &owner.ID
	}
	e.store.accidents[a.ID] = a
	return a
}

func floatPtr(f float64) *float64 { return &f }
