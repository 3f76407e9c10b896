package feed

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TheFaucett/stock-game-sub000/internal/news"
)

func TestFlatten_Scopes(t *testing.T) {
	batch := Batch{
		"ACME":       {{Description: "acme beats", SentimentScore: 4}},
		"Technology": {{Description: "tech surges", SentimentScore: 5}},
		"global":     {{Description: "calm", SentimentScore: 0}},
	}
	items := Flatten(batch, map[string]bool{"ACME": true}, map[string]bool{"Technology": true})
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	want := map[string]news.Scope{"ACME": news.ScopeTicker, "Technology": news.ScopeSector, "global": news.ScopeGlobal}
	for _, it := range items {
		if want[it.Target] != it.Scope {
			t.Errorf("%s: scope %s, want %s", it.Target, it.Scope, want[it.Target])
		}
	}
	if items[0].Target != "ACME" {
		t.Errorf("expected sorted keys, first is %s", items[0].Target)
	}
}

func TestLexiconScorer(t *testing.T) {
	s := NewLexiconScorer()
	if got := s.Score("ACME soars after breakthrough approval!"); got != 10 {
		t.Errorf("expected clamp at 10, got %f", got)
	}
	if got := s.Score("ACME misses; faces lawsuit"); got != -9 {
		t.Errorf("expected -9, got %f", got)
	}
	if got := s.Score("nothing to see"); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
}

func TestSynthetic_Fetch(t *testing.T) {
	src := NewSynthetic(rand.New(rand.NewSource(5)), NewLexiconScorer(),
		[]string{"ACME", "BOLT"}, []string{"Technology"}, 3.5)
	total := 0
	for tick := int64(1); tick <= 100; tick++ {
		batch, err := src.Fetch(context.Background(), tick)
		if err != nil {
			t.Fatal(err)
		}
		for key, hs := range batch {
			switch key {
			case "ACME", "BOLT", "Technology", news.GlobalTarget:
			default:
				t.Fatalf("unexpected key %s", key)
			}
			for _, h := range hs {
				if h.SentimentScore < -10 || h.SentimentScore > 10 {
					t.Fatalf("score %f out of range", h.SentimentScore)
				}
			}
			total += len(hs)
		}
	}
	if total < 300 || total > 400 {
		t.Errorf("expected about 350 headlines over 100 ticks, got %d", total)
	}
}

func TestRemote_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/news" || r.URL.Query().Get("tick") != "7" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Batch{"ACME": {{Description: "acme beats", SentimentScore: 6}}})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "/news", 2*time.Second)
	batch, err := r.Fetch(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch["ACME"]) != 1 || batch["ACME"][0].SentimentScore != 6 {
		t.Errorf("unexpected batch %+v", batch)
	}

	if _, err := r.Fetch(context.Background(), 8); err == nil {
		t.Error("expected error on 404")
	}
}
