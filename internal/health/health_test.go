package health

import (
	"context"
	"testing"
)

func TestCheckAll_Empty(t *testing.T) {
	r := NewRegistry()

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Error("empty registry should report healthy")
	}
	if len(statuses) != 0 {
		t.Errorf("expected no statuses, got %d", len(statuses))
	}
}

func TestCheckAll_AggregatesResults(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(ctx context.Context) Status {
		return Status{Name: "database", Healthy: true}
	})
	r.Register("broker", func(ctx context.Context) Status {
		return Status{Name: "broker", Healthy: false, Detail: "connection refused"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Error("expected unhealthy aggregate when one checker fails")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Name != "database" || !statuses[0].Healthy {
		t.Errorf("unexpected first status: %+v", statuses[0])
	}
	if statuses[1].Detail != "connection refused" {
		t.Errorf("detail not carried through: %+v", statuses[1])
	}
}

func TestCheckAll_PassesContext(t *testing.T) {
	r := NewRegistry()
	type ctxKey struct{}
	r.Register("ctx", func(ctx context.Context) Status {
		v, _ := ctx.Value(ctxKey{}).(string)
		return Status{Name: "ctx", Healthy: v == "marker"}
	})

	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")
	healthy, _ := r.CheckAll(ctx)
	if !healthy {
		t.Error("checker did not receive the caller context")
	}
}
