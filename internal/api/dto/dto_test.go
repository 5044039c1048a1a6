package dto_test

import (
	"testing"
	"time"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantNil bool
		wantErr bool
	}{
		{in: "", wantNil: true},
		{in: "2025-04-01T14:30:00Z", want: time.Date(2025, 4, 1, 14, 30, 0, 0, time.UTC)},
		{in: "2025-04-01T14:30", want: time.Date(2025, 4, 1, 14, 30, 0, 0, time.UTC)},
		{in: " 2025-04-01 ", want: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
		{in: "next tuesday", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := dto.ParseTime("deadline", tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tc.wantNil {
				if got != nil {
					t.Fatalf("got %v, want nil", got)
				}
				return
			}
			if got == nil || !got.Equal(tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAssetRequestMergesLegacyBlock(t *testing.T) {
	req := dto.AssetRequest{Block: "A; B", Blocks: []string{"C"}}
	in := req.ToInput()
	if len(in.Blocks) != 2 || in.Blocks[0] != "A; B" || in.Blocks[1] != "C" {
		t.Errorf("blocks = %v", in.Blocks)
	}
}

func TestIssueRequestRejectsBadDeadline(t *testing.T) {
	if _, err := (dto.IssueRequest{Deadline: "soon"}).ToInput(); err == nil {
		t.Fatal("expected validation error")
	}
}
