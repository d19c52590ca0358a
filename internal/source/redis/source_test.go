package redis

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
)

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewSourceForTest(c, "esmirror:")
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewSourceForTest(c, "esmirror:")
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func scanResult(cursor string, keys ...string) rueidis.RedisResult {
	msgs := make([]rueidis.RedisMessage, len(keys))
	for i, k := range keys {
		msgs[i] = mock.RedisString(k)
	}
	return mock.Result(mock.RedisArray(
		mock.RedisString(cursor),
		mock.RedisArray(msgs...),
	))
}

func TestCursor_StreamsAllRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN" && cmd[1] == "0"
		})).
		Return(scanResult("42", "esmirror:users:u1"))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "esmirror:users:u1")).
		Return(mock.Result(mock.RedisString(`{"name":"Ada"}`)))
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN" && cmd[1] == "42"
		})).
		Return(scanResult("0", "esmirror:users:u2"))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "esmirror:users:u2")).
		Return(mock.Result(mock.RedisString(`{"name":"Grace"}`)))

	s := NewSourceForTest(c, "esmirror:")
	cur := s.Records("users")

	rec, err := cur.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "u1" || rec.Fields["name"] != "Ada" {
		t.Errorf("unexpected first record: %+v", rec)
	}

	rec, err = cur.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "u2" || rec.Fields["name"] != "Grace" {
		t.Errorf("unexpected second record: %+v", rec)
	}

	if _, err = cur.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at exhaustion, got %v", err)
	}
}

func TestCursor_EmptyCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		Return(scanResult("0"))

	s := NewSourceForTest(c, "esmirror:")
	cur := s.Records("users")

	if _, err := cur.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestCursor_ExpiredKeySkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		Return(scanResult("0", "esmirror:users:gone", "esmirror:users:u1"))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "esmirror:users:gone")).
		Return(mock.Result(mock.RedisNil()))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "esmirror:users:u1")).
		Return(mock.Result(mock.RedisString(`{"name":"Ada"}`)))

	s := NewSourceForTest(c, "esmirror:")
	cur := s.Records("users")

	rec, err := cur.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "u1" {
		t.Errorf("expected expired key skipped, got %+v", rec)
	}
}

func TestCursor_ScanFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewSourceForTest(c, "esmirror:")
	cur := s.Records("users")

	if _, err := cur.Next(context.Background()); err == nil {
		t.Fatal("expected scan failure to surface")
	}
}

func TestCursor_MatchPatternCarriesPrefix(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			for i, arg := range cmd {
				if arg == "MATCH" && i+1 < len(cmd) {
					return cmd[i+1] == "esmirror:users:*"
				}
			}
			return false
		})).
		Return(scanResult("0"))

	s := NewSourceForTest(c, "esmirror:")
	cur := s.Records("users")
	_, _ = cur.Next(context.Background())
}
