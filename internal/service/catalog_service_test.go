package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/internal/testutil"
)

func TestPropertyCreateOwnership(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	client := h.SeedUser("Cli", domain.RoleClient)
	manager := h.SeedUser("Man", domain.RoleManager)

	own, err := h.PropertySvc.Create(ctx, testutil.Caller(client), service.PropertyInput{Name: testutil.Ptr("Flat 4")})
	if err != nil {
		t.Fatal(err)
	}
	if own.UserID != client.ID.Hex() {
		t.Errorf("client property owner = %q", own.UserID)
	}

	staff, err := h.PropertySvc.Create(ctx, testutil.Caller(manager), service.PropertyInput{Name: testutil.Ptr("Depot")})
	if err != nil {
		t.Fatal(err)
	}
	if staff.UserID != "" {
		t.Errorf("manager property owner = %q, want unowned", staff.UserID)
	}

	_, err = h.PropertySvc.Create(ctx, nil, service.PropertyInput{Name: testutil.Ptr("  ")})
	wantStatus(t, err, http.StatusBadRequest)

	mine, err := h.PropertySvc.List(ctx, client.ID.Hex())
	if err != nil || len(mine) != 1 {
		t.Errorf("owner list = %d, %v", len(mine), err)
	}
	_, err = h.PropertySvc.List(ctx, "owner")
	wantStatus(t, err, http.StatusBadRequest)
}

func TestPropertyDetail(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	prop := h.SeedProperty("Tower", "")
	other := h.SeedProperty("Annex", "")
	h.SeedAsset("Lift", "elevator", prop.ID.Hex())
	h.SeedAsset("Boiler", "hvac", other.ID.Hex())
	account := h.SeedUser("Ian Internal", domain.RoleInternal)
	h.SeedInternal("Ian", account.Email, prop.ID.Hex())
	h.SeedInternal("Nia", "nia@nowhere.example", prop.ID.Hex())

	detail, err := h.PropertySvc.Get(ctx, prop.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.Assets) != 1 || detail.Assets[0].Name != "Lift" {
		t.Errorf("assets = %+v", detail.Assets)
	}
	if len(detail.InternalTechnicians) != 2 {
		t.Fatalf("technicians = %+v", detail.InternalTechnicians)
	}
	if detail.InternalTechnicians[0].LinkedUserID != account.ID.Hex() || detail.InternalTechnicians[1].LinkedUserID != "" {
		t.Errorf("linked ids = %q, %q", detail.InternalTechnicians[0].LinkedUserID, detail.InternalTechnicians[1].LinkedUserID)
	}

	got, err := h.PropertySvc.AddPhotos(ctx, prop.ID.Hex(), []string{"/uploads/a.jpg"})
	if err != nil || len(got.Photos) != 1 {
		t.Errorf("photos = %+v, %v", got, err)
	}
	_, err = h.PropertySvc.AddPhotos(ctx, prop.ID.Hex(), nil)
	wantStatus(t, err, http.StatusBadRequest)

	if err := h.PropertySvc.Delete(ctx, other.ID.Hex()); err != nil {
		t.Fatal(err)
	}
	wantStatus(t, h.PropertySvc.Delete(ctx, other.ID.Hex()), http.StatusNotFound)
}

func TestAssetBlocksAndQuantity(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()

	asset, err := h.AssetSvc.Create(ctx, service.AssetInput{
		Name:     testutil.Ptr("Chiller"),
		Building: testutil.Ptr("North"),
		Blocks:   []string{"A", "B", "a"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if asset.Quantity != 1 || asset.Location.Building != "North" {
		t.Errorf("asset = %+v", asset)
	}
	if len(asset.Location.Blocks) != 2 {
		t.Errorf("blocks = %v, want A and B", asset.Location.Blocks)
	}

	updated, err := h.AssetSvc.Update(ctx, asset.ID.Hex(), service.AssetInput{Blocks: []string{"C"}, RemoveBlocks: []string{"A"}})
	if err != nil {
		t.Fatal(err)
	}
	if b := updated.Location.Blocks; len(b) != 2 || b[0] != "B" || b[1] != "C" {
		t.Errorf("merged blocks = %v", b)
	}
	if updated.Quantity != 1 {
		t.Errorf("quantity changed to %d", updated.Quantity)
	}

	replaced, err := h.AssetSvc.Update(ctx, asset.ID.Hex(), service.AssetInput{Blocks: []string{"Z"}, ReplaceBlocks: true, Quantity: testutil.Ptr(0)})
	if err != nil {
		t.Fatal(err)
	}
	if b := replaced.Location.Blocks; len(b) != 1 || b[0] != "Z" {
		t.Errorf("replaced blocks = %v", b)
	}
	if replaced.Quantity != 1 {
		t.Errorf("quantity floor = %d", replaced.Quantity)
	}

	_, err = h.AssetSvc.Create(ctx, service.AssetInput{Name: testutil.Ptr("x"), PropertyID: testutil.Ptr("p1")})
	wantStatus(t, err, http.StatusBadRequest)
}

func TestAssetMoveAndSpareParts(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	mover := h.SeedUser("Mover", domain.RoleTechnician)
	asset, err := h.AssetSvc.Create(ctx, service.AssetInput{Name: testutil.Ptr("Pump"), Building: testutil.Ptr("East")})
	if err != nil {
		t.Fatal(err)
	}

	_, err = h.AssetSvc.Move(ctx, nil, asset.ID.Hex(), service.MoveInput{})
	wantStatus(t, err, http.StatusBadRequest)

	mv, err := h.AssetSvc.Move(ctx, testutil.Caller(mover), asset.ID.Hex(), service.MoveInput{To: "West", Notes: "flood"})
	if err != nil {
		t.Fatal(err)
	}
	if mv.From != "East" || mv.To != "West" || mv.MovedBy != mover.ID.Hex() || !mv.Timestamp.Equal(baseTime) {
		t.Errorf("movement = %+v", mv)
	}
	stored, _ := h.AssetSvc.Get(ctx, asset.ID.Hex())
	if stored.Location.Building != "West" {
		t.Errorf("building = %q", stored.Location.Building)
	}
	moves, _ := h.AssetSvc.Movements(ctx, asset.ID.Hex())
	if len(moves) != 1 {
		t.Errorf("movements = %d", len(moves))
	}

	part, err := h.AssetSvc.AddSparePart(ctx, asset.ID.Hex(), service.SparePartInput{Name: "Seal", PartNumber: " S-1 "})
	if err != nil {
		t.Fatal(err)
	}
	if part.Quantity != 1 || part.PartNumber != "S-1" {
		t.Errorf("part = %+v", part)
	}
	parts, _ := h.AssetSvc.SpareParts(ctx, asset.ID.Hex())
	if len(parts) != 1 {
		t.Errorf("parts = %d", len(parts))
	}

	count, err := h.AssetSvc.Count(ctx, repository.AssetFilter{})
	if err != nil || count != 1 {
		t.Errorf("count = %d, %v", count, err)
	}
}

func TestForAssignment(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	h.SeedUser("zed", domain.RoleTechnician)
	h.SeedUser("Admin", domain.RoleAdmin)
	if _, err := h.TechnicianSvc.CreateExternal(ctx, service.TechnicianInput{Name: testutil.Ptr("Alpha Electric")}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.TechnicianSvc.CreateExternal(ctx, service.TechnicianInput{Name: testutil.Ptr("Benched"), Status: testutil.Ptr("Inactive")}); err != nil {
		t.Fatal(err)
	}

	list, err := h.TechnicianSvc.ForAssignment(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "Alpha Electric" || list[1].Name != "zed" {
		t.Fatalf("picker = %+v", list)
	}
	if list[0].Kind != domain.AssigneeKindExternal || list[1].Kind != domain.AssigneeKindUser {
		t.Errorf("kinds = %q, %q", list[0].Kind, list[1].Kind)
	}
}

func TestInternalTechnicianCRUD(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	prop := h.SeedProperty("Site", "")
	account := h.SeedUser("Lin", domain.RoleInternal)

	tech, err := h.TechnicianSvc.CreateInternal(ctx, service.TechnicianInput{
		Name:       testutil.Ptr("Lin"),
		Email:      testutil.Ptr(account.Email),
		PropertyID: testutil.Ptr(prop.ID.Hex()),
	})
	if err != nil {
		t.Fatal(err)
	}
	if tech.Status != domain.TechnicianStatusActive || tech.LinkedUserID != account.ID.Hex() {
		t.Errorf("tech = %+v", tech)
	}

	_, err = h.TechnicianSvc.CreateInternal(ctx, service.TechnicianInput{Name: testutil.Ptr("x"), PropertyID: testutil.Ptr("site")})
	wantStatus(t, err, http.StatusBadRequest)

	updated, err := h.TechnicianSvc.UpdateInternal(ctx, tech.ID.Hex(), service.TechnicianInput{Specialty: testutil.Ptr("HVAC"), Status: testutil.Ptr(" ")})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Specialty != "HVAC" || updated.Status != domain.TechnicianStatusActive {
		t.Errorf("updated = %+v", updated)
	}

	at, err := h.TechnicianSvc.ListInternal(ctx, repository.InternalTechnicianFilter{PropertyID: prop.ID.Hex()})
	if err != nil || len(at) != 1 || at[0].LinkedUserID == "" {
		t.Errorf("list = %+v, %v", at, err)
	}

	if err := h.TechnicianSvc.DeleteInternal(ctx, tech.ID.Hex()); err != nil {
		t.Fatal(err)
	}
	_, err = h.TechnicianSvc.GetInternal(ctx, tech.ID.Hex())
	wantStatus(t, err, http.StatusNotFound)
}

func TestTemplatesAndFeedback(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	client := h.SeedUser("Fay", domain.RoleClient)

	tpl, err := h.TemplateSvc.Create(ctx, service.TemplateInput{Name: testutil.Ptr("Quarterly HVAC"), Checklist: &[]string{"filters", "belts"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(tpl.Checklist) != 2 {
		t.Errorf("checklist = %v", tpl.Checklist)
	}
	_, err = h.TemplateSvc.Create(ctx, service.TemplateInput{})
	wantStatus(t, err, http.StatusBadRequest)

	fb, err := h.FeedbackSvc.Create(ctx, testutil.Caller(client), service.FeedbackInput{Message: "Quick fix", Rating: 5})
	if err != nil {
		t.Fatal(err)
	}
	if fb.ClientID != client.ID.Hex() || !fb.Date.Equal(baseTime) {
		t.Errorf("feedback = %+v", fb)
	}
	_, err = h.FeedbackSvc.Create(ctx, nil, service.FeedbackInput{Message: "x", Rating: 6})
	wantStatus(t, err, http.StatusBadRequest)

	mine, err := h.FeedbackSvc.ListForClient(ctx, client.ID.Hex())
	if err != nil || len(mine) != 1 {
		t.Errorf("client feedback = %d, %v", len(mine), err)
	}
	_, err = h.FeedbackSvc.ListForClient(ctx, "")
	wantStatus(t, err, http.StatusBadRequest)
}
