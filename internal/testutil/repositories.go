package testutil

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
)

// IssueRepo is an in-memory repository.IssueRepository.
type IssueRepo struct {
	t *table[domain.Issue]
}

// NewIssueRepo constructs an empty IssueRepo.
func NewIssueRepo() *IssueRepo {
	return &IssueRepo{t: newTable(func(i *domain.Issue) *primitive.ObjectID { return &i.ID })}
}

func (r *IssueRepo) Create(_ context.Context, issue *domain.Issue) error {
	stamp(&issue.CreatedAt, &issue.UpdatedAt)
	if issue.Assignees == nil {
		issue.Assignees = []domain.Assignee{}
	}
	r.t.put(issue)
	return nil
}

func (r *IssueRepo) Update(_ context.Context, issue *domain.Issue) error {
	stored, err := r.t.get(issue.ID.Hex())
	if err != nil {
		return err
	}
	issue.Assignees = stored.Assignees
	issue.CreatedAt = stored.CreatedAt
	stamp(nil, &issue.UpdatedAt)
	r.t.put(issue)
	return nil
}

func (r *IssueRepo) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	return r.t.get(id)
}

func (r *IssueRepo) List(_ context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	items := r.t.all(func(i *domain.Issue) bool {
		if filter.UserID != "" && !refMatch(i.UserID, filter.UserID) {
			return false
		}
		if filter.Status != "" && i.Status != filter.Status {
			return false
		}
		if filter.AssignedTo != "" && !i.AssignedToID(filter.AssignedTo) {
			return false
		}
		if len(filter.PropertyIDs) > 0 || len(filter.AssetIDs) > 0 {
			return refMatch(i.PropertyID, filter.PropertyIDs...) || refMatch(i.AssetID, filter.AssetIDs...)
		}
		return true
	})
	return newestFirst(items, func(i *domain.Issue) time.Time { return i.CreatedAt }, filter.Limit), nil
}

func (r *IssueRepo) Assign(_ context.Context, id string, a repository.IssueAssignment, snapshot domain.Assignee) error {
	issue, err := r.t.get(id)
	if err != nil {
		return err
	}
	issue.AssignedTo = a.AssignedTo
	if a.InternalTechnicianID != "" {
		issue.InternalTechnicianID = a.InternalTechnicianID
	}
	if a.Status != "" {
		issue.Status = a.Status
	}
	if a.Priority != "" {
		issue.Priority = a.Priority
	}
	if a.Deadline != nil {
		issue.Deadline = a.Deadline
	}
	issue.Assignees = append(issue.Assignees, snapshot)
	stamp(nil, &issue.UpdatedAt)
	r.t.put(issue)
	return nil
}

func (r *IssueRepo) Delete(_ context.Context, id string) error {
	return r.t.remove(id)
}

func (r *IssueRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, i := range r.t.all(nil) {
		out[string(i.Status)]++
	}
	return out, nil
}

// PropertyRepo is an in-memory repository.PropertyRepository.
type PropertyRepo struct {
	t *table[domain.Property]
}

// NewPropertyRepo constructs an empty PropertyRepo.
func NewPropertyRepo() *PropertyRepo {
	return &PropertyRepo{t: newTable(func(p *domain.Property) *primitive.ObjectID { return &p.ID })}
}

func (r *PropertyRepo) Create(_ context.Context, p *domain.Property) error {
	stamp(&p.CreatedAt, &p.UpdatedAt)
	r.t.put(p)
	return nil
}

func (r *PropertyRepo) Update(_ context.Context, p *domain.Property) error {
	if !r.t.has(p.ID.Hex()) {
		return mongo.ErrNoDocuments
	}
	stamp(nil, &p.UpdatedAt)
	r.t.put(p)
	return nil
}

func (r *PropertyRepo) GetByID(_ context.Context, id string) (*domain.Property, error) {
	return r.t.get(id)
}

func (r *PropertyRepo) List(_ context.Context, filter repository.PropertyFilter) ([]domain.Property, error) {
	return r.t.all(func(p *domain.Property) bool {
		if filter.OwnerID != "" && !p.OwnedBy(filter.OwnerID) {
			return false
		}
		if len(filter.IDs) > 0 && !refMatch(p.ID.Hex(), filter.IDs...) {
			return false
		}
		return true
	}), nil
}

func (r *PropertyRepo) AddPhotos(_ context.Context, id string, photos []string) error {
	p, err := r.t.get(id)
	if err != nil {
		return err
	}
	p.Photos = append(p.Photos, photos...)
	r.t.put(p)
	return nil
}

func (r *PropertyRepo) Delete(_ context.Context, id string) error {
	return r.t.remove(id)
}

// AssetRepo is an in-memory repository.AssetRepository.
type AssetRepo struct {
	t         *table[domain.Asset]
	parts     *table[domain.SparePart]
	movements *table[domain.AssetMovement]
}

// NewAssetRepo constructs an empty AssetRepo.
func NewAssetRepo() *AssetRepo {
	return &AssetRepo{
		t:         newTable(func(a *domain.Asset) *primitive.ObjectID { return &a.ID }),
		parts:     newTable(func(p *domain.SparePart) *primitive.ObjectID { return &p.ID }),
		movements: newTable(func(m *domain.AssetMovement) *primitive.ObjectID { return &m.ID }),
	}
}

func (r *AssetRepo) Create(_ context.Context, a *domain.Asset) error {
	stamp(&a.CreatedAt, &a.UpdatedAt)
	r.t.put(a)
	return nil
}

func (r *AssetRepo) Update(_ context.Context, a *domain.Asset) error {
	if !r.t.has(a.ID.Hex()) {
		return mongo.ErrNoDocuments
	}
	stamp(nil, &a.UpdatedAt)
	r.t.put(a)
	return nil
}

func (r *AssetRepo) GetByID(_ context.Context, id string) (*domain.Asset, error) {
	return r.t.get(id)
}

func (r *AssetRepo) List(_ context.Context, filter repository.AssetFilter) ([]domain.Asset, error) {
	return r.t.all(func(a *domain.Asset) bool {
		if len(filter.PropertyIDs) > 0 && !refMatch(a.PropertyID, filter.PropertyIDs...) {
			return false
		}
		if filter.Type != "" && !foldEqual(a.Type, filter.Type) {
			return false
		}
		if filter.Status != "" && !foldEqual(a.Status, filter.Status) {
			return false
		}
		return true
	}), nil
}

func (r *AssetRepo) Count(ctx context.Context, filter repository.AssetFilter) (int64, error) {
	items, err := r.List(ctx, filter)
	return int64(len(items)), err
}

func (r *AssetRepo) Delete(_ context.Context, id string) error {
	return r.t.remove(id)
}

func (r *AssetRepo) AddSparePart(_ context.Context, p *domain.SparePart) error {
	stamp(&p.CreatedAt, nil)
	r.parts.put(p)
	return nil
}

func (r *AssetRepo) ListSpareParts(_ context.Context, assetID string) ([]domain.SparePart, error) {
	return r.parts.all(func(p *domain.SparePart) bool { return refMatch(p.AssetID, assetID) }), nil
}

func (r *AssetRepo) AddMovement(_ context.Context, m *domain.AssetMovement) error {
	stamp(&m.Timestamp, nil)
	r.movements.put(m)
	return nil
}

func (r *AssetRepo) ListMovements(_ context.Context, assetID string) ([]domain.AssetMovement, error) {
	items := r.movements.all(func(m *domain.AssetMovement) bool { return refMatch(m.AssetID, assetID) })
	return newestFirst(items, func(m *domain.AssetMovement) time.Time { return m.Timestamp }, 0), nil
}

// UserRepo is an in-memory repository.UserRepository.
type UserRepo struct {
	t *table[domain.User]
}

// NewUserRepo constructs an empty UserRepo.
func NewUserRepo() *UserRepo {
	return &UserRepo{t: newTable(func(u *domain.User) *primitive.ObjectID { return &u.ID })}
}

func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	if _, err := r.GetByEmail(context.Background(), u.Email); err == nil {
		return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "duplicate key"}}}
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	r.t.put(u)
	return nil
}

func (r *UserRepo) Update(_ context.Context, u *domain.User) error {
	if !r.t.has(u.ID.Hex()) {
		return mongo.ErrNoDocuments
	}
	stamp(nil, &u.UpdatedAt)
	r.t.put(u)
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.t.get(id)
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.t.all(func(u *domain.User) bool { return foldEqual(u.Email, email) }) {
		return &u, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (r *UserRepo) FindByContact(_ context.Context, email, phone string) (*domain.User, error) {
	email, phone = strings.TrimSpace(email), strings.TrimSpace(phone)
	for _, u := range r.t.all(func(u *domain.User) bool {
		return (email != "" && foldEqual(u.Email, email)) || (phone != "" && u.Phone == phone)
	}) {
		return &u, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (r *UserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	return r.t.all(func(u *domain.User) bool {
		if filter.Status != "" && u.Status != filter.Status {
			return false
		}
		if len(filter.Roles) == 0 {
			return true
		}
		for _, role := range filter.Roles {
			if domain.ParseRole(string(u.Role)) == role {
				return true
			}
		}
		return false
	}), nil
}

// InternalTechnicianRepo is an in-memory repository.InternalTechnicianRepository.
type InternalTechnicianRepo struct {
	t *table[domain.InternalTechnician]
}

// NewInternalTechnicianRepo constructs an empty InternalTechnicianRepo.
func NewInternalTechnicianRepo() *InternalTechnicianRepo {
	return &InternalTechnicianRepo{t: newTable(func(t *domain.InternalTechnician) *primitive.ObjectID { return &t.ID })}
}

func (r *InternalTechnicianRepo) Create(_ context.Context, t *domain.InternalTechnician) error {
	stamp(&t.CreatedAt, &t.UpdatedAt)
	r.t.put(t)
	return nil
}

func (r *InternalTechnicianRepo) Update(_ context.Context, t *domain.InternalTechnician) error {
	if !r.t.has(t.ID.Hex()) {
		return mongo.ErrNoDocuments
	}
	stamp(nil, &t.UpdatedAt)
	r.t.put(t)
	return nil
}

func (r *InternalTechnicianRepo) GetByID(_ context.Context, id string) (*domain.InternalTechnician, error) {
	return r.t.get(id)
}

func (r *InternalTechnicianRepo) List(_ context.Context, filter repository.InternalTechnicianFilter) ([]domain.InternalTechnician, error) {
	return r.t.all(func(t *domain.InternalTechnician) bool {
		if filter.PropertyID != "" && !refMatch(t.PropertyID, filter.PropertyID) {
			return false
		}
		if filter.Status != "" && !foldEqual(t.Status, filter.Status) {
			return false
		}
		if len(filter.IDs) > 0 && !refMatch(t.ID.Hex(), filter.IDs...) {
			return false
		}
		return true
	}), nil
}

func (r *InternalTechnicianRepo) FindByContact(_ context.Context, email, phone string) ([]domain.InternalTechnician, error) {
	email, phone = strings.TrimSpace(email), strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return []domain.InternalTechnician{}, nil
	}
	return r.t.all(func(t *domain.InternalTechnician) bool {
		return (email != "" && foldEqual(t.Email, email)) || (phone != "" && t.Phone == phone)
	}), nil
}

func (r *InternalTechnicianRepo) Delete(_ context.Context, id string) error {
	return r.t.remove(id)
}

// TechnicianRepo is an in-memory repository.TechnicianRepository.
type TechnicianRepo struct {
	t *table[domain.Technician]
}

// NewTechnicianRepo constructs an empty TechnicianRepo.
func NewTechnicianRepo() *TechnicianRepo {
	return &TechnicianRepo{t: newTable(func(t *domain.Technician) *primitive.ObjectID { return &t.ID })}
}

func (r *TechnicianRepo) Create(_ context.Context, t *domain.Technician) error {
	stamp(&t.CreatedAt, &t.UpdatedAt)
	r.t.put(t)
	return nil
}

func (r *TechnicianRepo) Update(_ context.Context, t *domain.Technician) error {
	if !r.t.has(t.ID.Hex()) {
		return mongo.ErrNoDocuments
	}
	stamp(nil, &t.UpdatedAt)
	r.t.put(t)
	return nil
}

func (r *TechnicianRepo) GetByID(_ context.Context, id string) (*domain.Technician, error) {
	return r.t.get(id)
}

func (r *TechnicianRepo) List(_ context.Context) ([]domain.Technician, error) {
	return r.t.all(nil), nil
}

func (r *TechnicianRepo) Delete(_ context.Context, id string) error {
	return r.t.remove(id)
}

// ScheduleRepo is an in-memory repository.ScheduleRepository.
type ScheduleRepo struct {
	t *table[domain.MaintenanceSchedule]
}

// NewScheduleRepo constructs an empty ScheduleRepo.
func NewScheduleRepo() *ScheduleRepo {
	return &ScheduleRepo{t: newTable(func(s *domain.MaintenanceSchedule) *primitive.ObjectID { return &s.ID })}
}

func (r *ScheduleRepo) Create(_ context.Context, s *domain.MaintenanceSchedule) error {
	stamp(&s.CreatedAt, &s.UpdatedAt)
	r.t.put(s)
	return nil
}

func (r *ScheduleRepo) Update(_ context.Context, s *domain.MaintenanceSchedule) error {
	if !r.t.has(s.ID.Hex()) {
		return mongo.ErrNoDocuments
	}
	stamp(nil, &s.UpdatedAt)
	r.t.put(s)
	return nil
}

func (r *ScheduleRepo) GetByID(_ context.Context, id string) (*domain.MaintenanceSchedule, error) {
	return r.t.get(id)
}

func (r *ScheduleRepo) List(_ context.Context, filter repository.ScheduleFilter) ([]domain.MaintenanceSchedule, error) {
	return r.t.all(func(s *domain.MaintenanceSchedule) bool {
		if filter.Routine != nil && s.Routine != *filter.Routine {
			return false
		}
		if filter.DueBefore != nil && (s.NextDate == nil || s.NextDate.After(*filter.DueBefore)) {
			return false
		}
		if filter.AssetID != "" && !refMatch(s.AssetID, filter.AssetID) {
			return false
		}
		return true
	}), nil
}

func (r *ScheduleRepo) Delete(_ context.Context, id string) error {
	return r.t.remove(id)
}

// ReminderLogRepo is an in-memory repository.ReminderLogRepository.
type ReminderLogRepo struct {
	t *table[domain.ReminderLog]
}

// NewReminderLogRepo constructs an empty ReminderLogRepo.
func NewReminderLogRepo() *ReminderLogRepo {
	return &ReminderLogRepo{t: newTable(func(l *domain.ReminderLog) *primitive.ObjectID { return &l.ID })}
}

func (r *ReminderLogRepo) Create(_ context.Context, l *domain.ReminderLog) error {
	stamp(&l.SentAt, nil)
	r.t.put(l)
	return nil
}

func (r *ReminderLogRepo) ListBySchedule(_ context.Context, scheduleID string) ([]domain.ReminderLog, error) {
	items := r.t.all(func(l *domain.ReminderLog) bool { return refMatch(l.ScheduleID, scheduleID) })
	return newestFirst(items, func(l *domain.ReminderLog) time.Time { return l.SentAt }, 0), nil
}

// All returns every log entry in insertion order.
func (r *ReminderLogRepo) All() []domain.ReminderLog {
	return r.t.all(nil)
}

// TemplateRepo is an in-memory repository.TemplateRepository.
type TemplateRepo struct {
	t *table[domain.MaintenanceTemplate]
}

// NewTemplateRepo constructs an empty TemplateRepo.
func NewTemplateRepo() *TemplateRepo {
	return &TemplateRepo{t: newTable(func(t *domain.MaintenanceTemplate) *primitive.ObjectID { return &t.ID })}
}

func (r *TemplateRepo) Create(_ context.Context, t *domain.MaintenanceTemplate) error {
	stamp(&t.CreatedAt, &t.UpdatedAt)
	r.t.put(t)
	return nil
}

func (r *TemplateRepo) Update(_ context.Context, t *domain.MaintenanceTemplate) error {
	if !r.t.has(t.ID.Hex()) {
		return mongo.ErrNoDocuments
	}
	stamp(nil, &t.UpdatedAt)
	r.t.put(t)
	return nil
}

func (r *TemplateRepo) GetByID(_ context.Context, id string) (*domain.MaintenanceTemplate, error) {
	return r.t.get(id)
}

func (r *TemplateRepo) List(_ context.Context) ([]domain.MaintenanceTemplate, error) {
	return r.t.all(nil), nil
}

func (r *TemplateRepo) Delete(_ context.Context, id string) error {
	return r.t.remove(id)
}

// NotificationRepo is an in-memory repository.NotificationRepository.
type NotificationRepo struct {
	t *table[domain.Notification]
}

// NewNotificationRepo constructs an empty NotificationRepo.
func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{t: newTable(func(n *domain.Notification) *primitive.ObjectID { return &n.ID })}
}

func (r *NotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	stamp(&n.CreatedAt, nil)
	r.t.put(n)
	return nil
}

func (r *NotificationRepo) ListByUser(_ context.Context, userID string, limit int64) ([]domain.Notification, error) {
	items := r.t.all(func(n *domain.Notification) bool { return refMatch(n.UserID, userID) })
	return newestFirst(items, func(n *domain.Notification) time.Time { return n.CreatedAt }, limit), nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	n, err := r.t.get(id)
	if err != nil || !refMatch(n.UserID, userID) {
		return mongo.ErrNoDocuments
	}
	n.Read = true
	r.t.put(n)
	return nil
}

func (r *NotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range r.t.all(func(n *domain.Notification) bool { return refMatch(n.UserID, userID) && !n.Read }) {
		n.Read = true
		r.t.put(&n)
		count++
	}
	return count, nil
}

// All returns every notification in insertion order.
func (r *NotificationRepo) All() []domain.Notification {
	return r.t.all(nil)
}

// FeedbackRepo is an in-memory repository.FeedbackRepository.
type FeedbackRepo struct {
	t *table[domain.Feedback]
}

// NewFeedbackRepo constructs an empty FeedbackRepo.
func NewFeedbackRepo() *FeedbackRepo {
	return &FeedbackRepo{t: newTable(func(f *domain.Feedback) *primitive.ObjectID { return &f.ID })}
}

func (r *FeedbackRepo) Create(_ context.Context, f *domain.Feedback) error {
	stamp(&f.Date, nil)
	r.t.put(f)
	return nil
}

func (r *FeedbackRepo) List(_ context.Context, limit int64) ([]domain.Feedback, error) {
	return newestFirst(r.t.all(nil), func(f *domain.Feedback) time.Time { return f.Date }, limit), nil
}

func (r *FeedbackRepo) ListByClient(_ context.Context, clientID string) ([]domain.Feedback, error) {
	items := r.t.all(func(f *domain.Feedback) bool { return refMatch(f.ClientID, clientID) })
	return newestFirst(items, func(f *domain.Feedback) time.Time { return f.Date }, 0), nil
}

// Compile-time checks.
var (
	_ repository.IssueRepository              = (*IssueRepo)(nil)
	_ repository.PropertyRepository           = (*PropertyRepo)(nil)
	_ repository.AssetRepository              = (*AssetRepo)(nil)
	_ repository.UserRepository               = (*UserRepo)(nil)
	_ repository.InternalTechnicianRepository = (*InternalTechnicianRepo)(nil)
	_ repository.TechnicianRepository         = (*TechnicianRepo)(nil)
	_ repository.ScheduleRepository           = (*ScheduleRepo)(nil)
	_ repository.ReminderLogRepository        = (*ReminderLogRepo)(nil)
	_ repository.TemplateRepository           = (*TemplateRepo)(nil)
	_ repository.NotificationRepository       = (*NotificationRepo)(nil)
	_ repository.FeedbackRepository           = (*FeedbackRepo)(nil)
)

