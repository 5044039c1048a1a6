package testutil

import (
	"context"
	"strings"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// SeedUser stores an active user with the given role and returns it.
func (h *Harness) SeedUser(name string, role domain.Role) *domain.User {
	u := &domain.User{
		Name:   name,
		Email:  strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Role:   role,
		Status: domain.UserStatusActive,
	}
	if err := h.Users.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

// Caller returns the caller identity for u.
func Caller(u *domain.User) *domain.Caller {
	return &domain.Caller{UserID: u.ID.Hex(), Role: u.Role}
}

// SeedProperty stores a property owned by ownerID.
func (h *Harness) SeedProperty(name, ownerID string) *domain.Property {
	p := &domain.Property{Name: name, Address: name + " street", Type: "residential", UserID: ownerID}
	if err := h.Properties.Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}

// SeedAsset stores an asset in propertyID.
func (h *Harness) SeedAsset(name, assetType, propertyID string) *domain.Asset {
	a := &domain.Asset{Name: name, Type: assetType, Status: "active", Quantity: 1, PropertyID: propertyID}
	if err := h.Assets.Create(context.Background(), a); err != nil {
		panic(err)
	}
	return a
}

// SeedInternal stores an active internal technician at propertyID.
func (h *Harness) SeedInternal(name, email, propertyID string) *domain.InternalTechnician {
	t := &domain.InternalTechnician{
		Name:       name,
		Email:      email,
		Status:     domain.TechnicianStatusActive,
		PropertyID: propertyID,
	}
	if err := h.Internals.Create(context.Background(), t); err != nil {
		panic(err)
	}
	return t
}

// SeedIssue stores an issue directly, bypassing the service rules.
func (h *Harness) SeedIssue(issue *domain.Issue) *domain.Issue {
	if issue.Status == "" {
		issue.Status = domain.IssueStatusPending
	}
	if err := h.Issues.Create(context.Background(), issue); err != nil {
		panic(err)
	}
	return issue
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
