package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/insight-coach/internal/apperr"
	"github.com/benvon/insight-coach/internal/database"
	"github.com/benvon/insight-coach/internal/models"
	"github.com/redis/go-redis/v9"
)

func grams(v float64) *float64 { return &v }

func TestApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		prev Memory
		u    Update
		want Memory
	}{
		{
			name: "first day below threshold",
			prev: Memory{},
			u:    Update{ProteinG: grams(90)},
			want: Memory{DaysActive: 1},
		},
		{
			name: "streak grows at threshold",
			prev: Memory{DaysActive: 4, ProteinStreakDays: 2},
			u:    Update{ProteinG: grams(140)},
			want: Memory{DaysActive: 5, ProteinStreakDays: 3},
		},
		{
			name: "streak resets below threshold",
			prev: Memory{DaysActive: 4, ProteinStreakDays: 2},
			u:    Update{ProteinG: grams(139)},
			want: Memory{DaysActive: 5},
		},
		{
			name: "unknown protein resets streak",
			prev: Memory{DaysActive: 1, ProteinStreakDays: 1},
			u:    Update{},
			want: Memory{DaysActive: 2},
		},
		{
			name: "negative feedback",
			prev: Memory{LastFeedbackSentiment: SentimentGood},
			u:    Update{Feedback: models.FeedbackNegative},
			want: Memory{DaysActive: 1, LastFeedbackSentiment: SentimentTooMuchPressure},
		},
		{
			name: "positive feedback",
			prev: Memory{LastFeedbackSentiment: SentimentTooMuchPressure},
			u:    Update{Feedback: models.FeedbackPositive},
			want: Memory{DaysActive: 1, LastFeedbackSentiment: SentimentGood},
		},
		{
			name: "absent feedback keeps sentiment and facts",
			prev: Memory{LastFeedbackSentiment: SentimentTooMuchPressure, Goal: "cut", FavoriteSnack: "skyr"},
			u:    Update{},
			want: Memory{DaysActive: 1, LastFeedbackSentiment: SentimentTooMuchPressure, Goal: "cut", FavoriteSnack: "skyr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Apply(tt.prev, tt.u); got != tt.want {
				t.Errorf("Apply() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type mockStore struct {
	getFunc func(ctx context.Context, userID string) (Memory, error)
	setFunc func(ctx context.Context, userID string, m Memory) error
}

func (m *mockStore) Get(ctx context.Context, userID string) (Memory, error) {
	return m.getFunc(ctx, userID)
}

func (m *mockStore) Set(ctx context.Context, userID string, mem Memory) error {
	return m.setFunc(ctx, userID, mem)
}

func (m *mockStore) Delete(context.Context, string) error { return nil }

var _ Store = (*mockStore)(nil)

func TestRecord(t *testing.T) {
	t.Parallel()

	t.Run("read failure does not overwrite", func(t *testing.T) {
		t.Parallel()
		wrote := false
		store := &mockStore{
			getFunc: func(context.Context, string) (Memory, error) { return Memory{}, errors.New("conn reset") },
			setFunc: func(context.Context, string, Memory) error { wrote = true; return nil },
		}
		_, err := Record(context.Background(), store, "u1", Update{})
		if !apperr.Is(err, apperr.KindPersistence) {
			t.Errorf("expected persistence error, got %v", err)
		}
		if wrote {
			t.Error("Set should not be called after a failed read")
		}
	})

	t.Run("write failure is a persistence error", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{
			getFunc: func(context.Context, string) (Memory, error) { return Memory{}, nil },
			setFunc: func(context.Context, string, Memory) error { return errors.New("read only") },
		}
		_, err := Record(context.Background(), store, "u1", Update{})
		if !apperr.Is(err, apperr.KindPersistence) {
			t.Errorf("expected persistence error, got %v", err)
		}
	})

	t.Run("round trip through in-memory store", func(t *testing.T) {
		t.Parallel()
		store := NewInMemoryStore()
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			if _, err := Record(ctx, store, "u1", Update{ProteinG: grams(150)}); err != nil {
				t.Fatalf("Record() error: %v", err)
			}
		}
		got, err := store.Get(ctx, "u1")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if got.DaysActive != 3 || got.ProteinStreakDays != 3 {
			t.Errorf("got %+v, want 3 days and a 3-day streak", got)
		}
		if err := store.Delete(ctx, "u1"); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		if got, _ := store.Get(ctx, "u1"); !got.IsEmpty() {
			t.Errorf("expected empty memory after delete, got %+v", got)
		}
	})
}

type fakeRedis struct {
	data    map[string]string
	lastTTL time.Duration
	getErr  error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.lastTTL = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := &fakeRedis{data: map[string]string{}}
	store := &RedisStore{rdb: fake, ttl: time.Hour}

	got, err := store.Get(ctx, "u1")
	if err != nil || !got.IsEmpty() {
		t.Fatalf("missing key: got %+v, %v", got, err)
	}

	want := Memory{DaysActive: 2, Goal: "recomp"}
	if err := store.Set(ctx, "u1", want); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, ok := fake.data["coach:memory:u1"]; !ok {
		t.Errorf("expected key coach:memory:u1, have %v", fake.data)
	}
	if fake.lastTTL != time.Hour {
		t.Errorf("ttl = %v, want 1h", fake.lastTTL)
	}

	got, err = store.Get(ctx, "u1")
	if err != nil || got != want {
		t.Errorf("Get() = %+v, %v, want %+v", got, err, want)
	}

	fake.data["coach:memory:bad"] = "{not json"
	if _, err := store.Get(ctx, "bad"); err == nil {
		t.Error("expected error for corrupt document")
	}

	fake.getErr = errors.New("connection refused")
	if _, err := store.Get(ctx, "u1"); err == nil {
		t.Error("expected error when redis fails")
	}
}

type fakeRepo struct {
	rows map[string][]byte
}

func (f *fakeRepo) GetByUserID(_ context.Context, userID string) (*database.MemoryRecord, error) {
	data, ok := f.rows[userID]
	if !ok {
		return nil, nil
	}
	return &database.MemoryRecord{UserID: userID, Data: data}, nil
}

func (f *fakeRepo) Upsert(_ context.Context, userID string, data []byte) error {
	f.rows[userID] = data
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, userID string) error {
	delete(f.rows, userID)
	return nil
}

func TestPostgresStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewPostgresStore(&fakeRepo{rows: map[string][]byte{}})

	if got, err := store.Get(ctx, "u1"); err != nil || !got.IsEmpty() {
		t.Fatalf("missing row: got %+v, %v", got, err)
	}

	want := Memory{DaysActive: 7, ProteinStreakDays: 3, LastFeedbackSentiment: SentimentGood}
	if err := store.Set(ctx, "u1", want); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if got, err := store.Get(ctx, "u1"); err != nil || got != want {
		t.Errorf("Get() = %+v, %v, want %+v", got, err, want)
	}

	if err := store.Set(ctx, "", want); err == nil {
		t.Error("expected error for empty user id")
	}
}
