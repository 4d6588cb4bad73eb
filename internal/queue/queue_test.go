package queue

import (
	"testing"

	"github.com/streadway/amqp"
)

func TestAttemptFrom(t *testing.T) {
	cases := []struct {
		name    string
		headers amqp.Table
		want    int32
	}{
		{"nil headers", nil, 0},
		{"missing header", amqp.Table{}, 0},
		{"int32", amqp.Table{retryHeader: int32(2)}, 2},
		{"int64", amqp.Table{retryHeader: int64(3)}, 3},
		{"int", amqp.Table{retryHeader: 1}, 1},
		{"wrong type", amqp.Table{retryHeader: "2"}, 0},
	}
	for _, c := range cases {
		if got := attemptFrom(c.headers); got != c.want {
			t.Errorf("%s: attemptFrom = %d, want %d", c.name, got, c.want)
		}
	}
}
