package service

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// nameLookupLimit bounds concurrent owner lookups during annotation.
const nameLookupLimit = 8

// visibilityStrategy returns the issues a caller of one role may see.
type visibilityStrategy func(ctx context.Context, caller domain.Caller) ([]domain.Issue, error)

// VisibilityResolver decides which issues a caller can read.
type VisibilityResolver struct {
	issues     repository.IssueRepository
	properties repository.PropertyRepository
	assets     repository.AssetRepository
	internals  repository.InternalTechnicianRepository
	users      repository.UserRepository
	logger     *zap.Logger
	strategies map[domain.Role]visibilityStrategy
}

// VisibilityDependencies bundles repositories for the resolver.
type VisibilityDependencies struct {
	IssueRepo              repository.IssueRepository
	PropertyRepo           repository.PropertyRepository
	AssetRepo              repository.AssetRepository
	InternalTechnicianRepo repository.InternalTechnicianRepository
	UserRepo               repository.UserRepository
	Logger                 *zap.Logger
}

// NewVisibilityResolver wires one strategy per role.
func NewVisibilityResolver(deps VisibilityDependencies) *VisibilityResolver {
	r := &VisibilityResolver{
		issues:     deps.IssueRepo,
		properties: deps.PropertyRepo,
		assets:     deps.AssetRepo,
		internals:  deps.InternalTechnicianRepo,
		users:      deps.UserRepo,
		logger:     nopLogger(deps.Logger),
	}
	r.strategies = map[domain.Role]visibilityStrategy{
		domain.RoleAdmin:      r.all,
		domain.RoleManager:    r.byContact,
		domain.RoleTechnician: r.assignedOrContact,
		domain.RoleInternal:   r.assignedOrContact,
		domain.RoleClient:     r.byOwnership,
	}
	return r
}

// Visible returns the caller's issues, newest first, annotated with client
// names. Anonymous callers must name a property. An authenticated caller
// that names a property gets the intersection.
func (r *VisibilityResolver) Visible(ctx context.Context, caller *domain.Caller, propertyID string) ([]domain.Issue, error) {
	issues, err := r.resolve(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(issues)
	r.AnnotateClientNames(ctx, issues)
	return issues, nil
}

// CanSee reports whether issue is in the caller's visible set.
func (r *VisibilityResolver) CanSee(ctx context.Context, caller *domain.Caller, issue *domain.Issue) (bool, error) {
	if caller.Anonymous() {
		return false, nil
	}
	if caller.Role == domain.RoleAdmin {
		return true, nil
	}
	issues, err := r.resolve(ctx, caller, "")
	if err != nil {
		return false, err
	}
	for i := range issues {
		if issues[i].ID == issue.ID {
			return true, nil
		}
	}
	return false, nil
}

func (r *VisibilityResolver) resolve(ctx context.Context, caller *domain.Caller, propertyID string) ([]domain.Issue, error) {
	if propertyID != "" {
		if err := requireID("propertyId", propertyID); err != nil {
			return nil, err
		}
	}

	var (
		issues []domain.Issue
		err    error
	)
	switch {
	case caller.Anonymous():
		if propertyID == "" {
			return nil, apperrors.NewUnauthorized("authentication or propertyId required")
		}
		issues, err = r.underProperties(ctx, []string{propertyID})
	case caller.Role == domain.RoleAdmin && propertyID != "":
		issues, err = r.underProperties(ctx, []string{propertyID})
	default:
		strategy, ok := r.strategies[caller.Role]
		if !ok {
			return nil, apperrors.NewForbidden("unknown role")
		}
		issues, err = strategy(ctx, *caller)
		if err == nil && propertyID != "" {
			issues, err = r.restrictToProperty(ctx, issues, propertyID)
		}
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return issues, nil
}

func (r *VisibilityResolver) all(ctx context.Context, _ domain.Caller) ([]domain.Issue, error) {
	return r.issues.List(ctx, repository.IssueFilter{})
}

// byContact follows caller contact → internal technicians → properties →
// assets → issues.
func (r *VisibilityResolver) byContact(ctx context.Context, caller domain.Caller) ([]domain.Issue, error) {
	propertyIDs, err := r.contactProperties(ctx, caller)
	if err != nil {
		return nil, err
	}
	return r.underProperties(ctx, propertyIDs)
}

func (r *VisibilityResolver) assignedOrContact(ctx context.Context, caller domain.Caller) ([]domain.Issue, error) {
	assigned, err := r.issues.List(ctx, repository.IssueFilter{AssignedTo: caller.UserID})
	if err != nil {
		return nil, err
	}
	viaContact, err := r.byContact(ctx, caller)
	if err != nil {
		return nil, err
	}
	return mergeIssues(assigned, viaContact), nil
}

func (r *VisibilityResolver) byOwnership(ctx context.Context, caller domain.Caller) ([]domain.Issue, error) {
	owned, err := r.properties.List(ctx, repository.PropertyFilter{OwnerID: caller.UserID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(owned))
	for _, p := range owned {
		ids = append(ids, p.ID.Hex())
	}
	return r.underProperties(ctx, ids)
}

func (r *VisibilityResolver) contactProperties(ctx context.Context, caller domain.Caller) ([]string, error) {
	user, err := r.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	techs, err := r.internals.FindByContact(ctx, user.Email, user.Phone)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(techs))
	for _, t := range techs {
		if id, ok := idutil.Normalize(t.PropertyID); ok {
			ids = append(ids, id)
		}
	}
	return uniqueStrings(ids), nil
}

// underProperties returns issues filed against the properties directly or
// against any of their assets. No properties means no issues.
func (r *VisibilityResolver) underProperties(ctx context.Context, propertyIDs []string) ([]domain.Issue, error) {
	if len(propertyIDs) == 0 {
		return []domain.Issue{}, nil
	}
	assetIDs, err := r.assetIDs(ctx, propertyIDs)
	if err != nil {
		return nil, err
	}
	return r.issues.List(ctx, repository.IssueFilter{PropertyIDs: propertyIDs, AssetIDs: assetIDs})
}

func (r *VisibilityResolver) assetIDs(ctx context.Context, propertyIDs []string) ([]string, error) {
	assets, err := r.assets.List(ctx, repository.AssetFilter{PropertyIDs: propertyIDs})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.ID.Hex())
	}
	return ids, nil
}

func (r *VisibilityResolver) restrictToProperty(ctx context.Context, issues []domain.Issue, propertyID string) ([]domain.Issue, error) {
	assetIDs, err := r.assetIDs(ctx, []string{propertyID})
	if err != nil {
		return nil, err
	}
	inProperty := make(map[string]struct{}, len(assetIDs))
	for _, id := range assetIDs {
		inProperty[id] = struct{}{}
	}
	out := issues[:0]
	for _, issue := range issues {
		if idutil.Equal(issue.PropertyID, propertyID) {
			out = append(out, issue)
			continue
		}
		if id, ok := idutil.Normalize(issue.AssetID); ok {
			if _, hit := inProperty[id]; hit {
				out = append(out, issue)
			}
		}
	}
	return out, nil
}

// AnnotateClientNames fills ClientName from each distinct owner. Owners that
// are missing or fail to load become "Unknown".
func (r *VisibilityResolver) AnnotateClientNames(ctx context.Context, issues []domain.Issue) {
	var ownerIDs []string
	for _, issue := range issues {
		if id, ok := idutil.Normalize(issue.UserID); ok {
			ownerIDs = append(ownerIDs, id)
		}
	}
	ownerIDs = uniqueStrings(ownerIDs)

	names := make([]string, len(ownerIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nameLookupLimit)
	for i, id := range ownerIDs {
		i, id := i, id
		g.Go(func() error {
			user, err := r.users.GetByID(gctx, id)
			if err != nil {
				if !apperrors.IsNotFound(err) {
					r.logger.Debug("owner lookup failed", zap.String("user_id", id), zap.Error(err))
				}
				return nil
			}
			names[i] = user.Name
			return nil
		})
	}
	_ = g.Wait()

	byID := make(map[string]string, len(ownerIDs))
	for i, id := range ownerIDs {
		if names[i] != "" {
			byID[id] = names[i]
		}
	}
	for i := range issues {
		issues[i].ClientName = domain.UnknownClientName
		if id, ok := idutil.Normalize(issues[i].UserID); ok {
			if name, found := byID[id]; found {
				issues[i].ClientName = name
			}
		}
	}
}

func mergeIssues(lists ...[]domain.Issue) []domain.Issue {
	seen := map[string]struct{}{}
	var out []domain.Issue
	for _, list := range lists {
		for _, issue := range list {
			key := issue.ID.Hex()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, issue)
		}
	}
	if out == nil {
		out = []domain.Issue{}
	}
	return out
}

func sortNewestFirst(issues []domain.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].CreatedAt.After(issues[j].CreatedAt)
	})
}
