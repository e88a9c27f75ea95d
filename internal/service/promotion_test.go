package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"tpf-ecosystem/internal/config"
	"tpf-ecosystem/internal/store"
	"tpf-ecosystem/pkg/errors"
)

var testPromotion = config.PromotionConfig{TTL: time.Hour, TitleMax: 100, DescriptionMax: 200}

func newPromotions() *PromotionService {
	svc := NewPromotionService(store.NewMemory(PromotionStoreOptions(testPromotion)), testPromotion)
	svc.SetClock(func() time.Time { return testNow })
	return svc
}

func TestPromotionLifetime(t *testing.T) {
	svc := newPromotions()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreatePromotionRequest{URL: "https://tpf.example/launch", Title: "Launch", UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	svc.SetClock(func() time.Time { return testNow.Add(59 * time.Minute) })
	links, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("len at 59m = %d, want 1", len(links))
	}
	clicked, err := svc.Click(ctx, p.ID)
	if err != nil || clicked.Clicks != 1 {
		t.Fatalf("Click() = %+v, %v", clicked, err)
	}

	svc.SetClock(func() time.Time { return testNow.Add(61 * time.Minute) })
	links, _ = svc.List(ctx)
	if len(links) != 0 {
		t.Fatalf("len at 61m = %d, want 0", len(links))
	}
	if _, err := svc.Click(ctx, p.ID); !errors.HasCode(err, errors.ErrGone) {
		t.Errorf("click on expired link error = %v, want gone", err)
	}
	if _, err := svc.Click(ctx, "missing"); !errors.HasCode(err, errors.ErrNotFound) {
		t.Errorf("click on unknown link error = %v, want not found", err)
	}
}

func TestPromotionExactlyOneHourIsStillActive(t *testing.T) {
	svc := newPromotions()
	ctx := context.Background()
	if _, err := svc.Create(ctx, CreatePromotionRequest{URL: "http://tpf.example", Title: "x"}); err != nil {
		t.Fatal(err)
	}
	svc.SetClock(func() time.Time { return testNow.Add(time.Hour) })
	if links, _ := svc.List(ctx); len(links) != 1 {
		t.Errorf("len at exactly 1h = %d, want 1", len(links))
	}
}

func TestPromotionCreateValidation(t *testing.T) {
	svc := newPromotions()
	tests := []struct {
		name string
		req  CreatePromotionRequest
	}{
		{"missing title", CreatePromotionRequest{URL: "https://a.example"}},
		{"missing url", CreatePromotionRequest{Title: "t"}},
		{"relative url", CreatePromotionRequest{URL: "/promo", Title: "t"}},
		{"ftp url", CreatePromotionRequest{URL: "ftp://a.example", Title: "t"}},
		{"no host", CreatePromotionRequest{URL: "https://", Title: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.req); !errors.HasCode(err, errors.ErrValidation) {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}
}

func TestPromotionTruncatesTitleAndDescription(t *testing.T) {
	svc := newPromotions()
	p, err := svc.Create(context.Background(), CreatePromotionRequest{
		URL:         "https://a.example",
		Title:       strings.Repeat("t", 150),
		Description: strings.Repeat("描", 250),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len([]rune(p.Title)) != 100 || len([]rune(p.Description)) != 200 {
		t.Errorf("title %d runes, description %d runes", len([]rune(p.Title)), len([]rune(p.Description)))
	}
}

func TestPromotionListNewestFirst(t *testing.T) {
	svc := newPromotions()
	ctx := context.Background()
	for i, title := range []string{"first", "second", "third"} {
		at := testNow.Add(time.Duration(i) * time.Minute)
		svc.SetClock(func() time.Time { return at })
		if _, err := svc.Create(ctx, CreatePromotionRequest{URL: "https://a.example", Title: title}); err != nil {
			t.Fatal(err)
		}
	}
	links, _ := svc.List(ctx)
	if len(links) != 3 || links[0].Title != "third" || links[2].Title != "first" {
		t.Errorf("order = %v", links)
	}
}
