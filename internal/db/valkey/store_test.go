package valkey

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/ragchat/internal/db"
)

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

func TestPing_Inherited(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := newStore(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsValkeyErr(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("Index Not Found")))

	err := newStore(c).do(context.Background(), c.B().Ping().Build()).Error()
	if !isValkeyErr(err, "index not found") {
		t.Errorf("expected case-insensitive match for %v", err)
	}
	if isValkeyErr(errors.New("index not found"), "index not found") {
		t.Error("non-server errors must not match")
	}
}

// --- search.go tests ---

func TestSearchKNN_NoSortBy(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "FT.SEARCH" || cmd[2] != "*=>[KNN 2 @vector $BLOB]" {
				return false
			}
			for _, a := range cmd {
				if a == "SORTBY" || a == "LIMIT" {
					return false
				}
			}
			return true
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("rag:doc:0"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("0.2"),
				mock.RedisString("content"),
				mock.RedisString("hello"),
			),
			mock.RedisString("rag:doc:1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("1.25"),
				mock.RedisString("content"),
				mock.RedisString("bye"),
			),
		)))

	result, err := newStore(c).SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "rag:idx",
		Vector:       []float32{0.1, 0.2},
		K:            2,
		ReturnFields: []string{"content", "__vector_score"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 || len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", result)
	}
	if math.Abs(result.Entries[0].Score-0.8) > 1e-9 {
		t.Errorf("expected score 0.8, got %f", result.Entries[0].Score)
	}
	if math.Abs(result.Entries[1].Score-(-0.25)) > 1e-9 {
		t.Errorf("expected unclamped score -0.25, got %f", result.Entries[1].Score)
	}
	if _, ok := result.Entries[0].Fields["__vector_score"]; ok {
		t.Error("score field should be removed from Fields")
	}
	if result.Entries[0].Fields["content"] != "hello" {
		t.Errorf("unexpected content %q", result.Entries[0].Fields["content"])
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	if _, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10}); err == nil {
		t.Error("expected error for empty index name")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", K: 10}); err == nil {
		t.Error("expected error for empty vector")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}, K: 0}); err == nil {
		t.Error("expected error for k=0")
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	_, err := newStore(c).SearchKNN(context.Background(), &db.KNNQuery{IndexName: "idx", Vector: []float32{1}, K: 1})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestSearchCount_WildcardFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN" && cmd[3] == "ragchat:rag:doc:*"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(0),
			mock.RedisArray(mock.RedisString("k1"), mock.RedisString("k2"), mock.RedisString("k3")),
		)))

	count, err := newStore(c).SearchCount(context.Background(), "ragchat:rag:idx", "*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3, got %d", count)
	}
}

func TestSearchCount_NonWildcard(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(5))))

	count, err := newStore(c).SearchCount(context.Background(), "idx", "@position:[0 10]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5, got %d", count)
	}
}

func TestIndexToKeyPrefix(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"ragchat:rag_collection:idx", "ragchat:rag_collection:doc:"},
		{"other", "other:doc:"},
	}
	for _, tc := range tests {
		if got := indexToKeyPrefix(tc.input); got != tc.want {
			t.Errorf("indexToKeyPrefix(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// --- index.go tests ---

func TestDropIndex_DeletesDocuments(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.DROPINDEX", "rag:idx")).
			Return(mock.Result(mock.RedisString("OK"))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return cmd[0] == "SCAN"
			})).
			Return(mock.Result(mock.RedisArray(
				mock.RedisInt64(0),
				mock.RedisArray(mock.RedisString("rag:doc:0"), mock.RedisString("rag:doc:1")),
			))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("DEL", "rag:doc:0", "rag:doc:1")).
			Return(mock.Result(mock.RedisInt64(2))),
	)

	if err := newStore(c).DropIndex(context.Background(), "rag:idx"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "rag:idx")).
		Return(mock.Result(mock.RedisError("Index with name 'rag:idx' not found")))

	err := newStore(c).DropIndex(context.Background(), "rag:idx")
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}
