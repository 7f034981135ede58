package mongodb

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsDup(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "write exception", err: mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "dup"}}}, want: true},
		{name: "command error", err: mongo.CommandError{Code: 11000, Message: "dup"}, want: true},
		{name: "other write code", err: mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121, Message: "validation"}}}, want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsDup(tc.err); got != tc.want {
				t.Fatalf("IsDup(%v)=%v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
