package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	redis "gopkg.in/redis.v5"

	"github.com/C8PAN/rafl/example"
	"github.com/C8PAN/rafl/example/csv"
	"github.com/C8PAN/rafl/example/sqlexamples"
	"github.com/C8PAN/rafl/queue"
	queuejson "github.com/C8PAN/rafl/queue/json"
	"github.com/C8PAN/rafl/queue/redisq"
)

/*
loadExamples reads the labelled examples at the given path: a SQLite
file for paths ending in .db, a CSV file for any other path, and CSV
on STDIN when the path is empty.
*/
func loadExamples(ctx context.Context, path string) ([]*example.Example[string], error) {
	if path == "" {
		return csv.ReadExamples(os.Stdin)
	}
	if strings.HasSuffix(path, ".db") {
		db, err := sqlexamples.Open(path)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return sqlexamples.ReadExamples(ctx, db, "examples")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening example file %s: %v", path, err)
	}
	defer f.Close()
	return csv.ReadExamples(f)
}

/*
newQueue returns the split-evaluation queue to train with: a
redis-backed queue when a redis address is given, an in-memory one
otherwise.
*/
func newQueue(queueID, redisAddr string) queue.Queue {
	if redisAddr == "" {
		return queue.New()
	}
	rc := redis.NewClient(&redis.Options{Addr: redisAddr})
	return redisq.New(queueID, rc, 5*time.Minute, 10*time.Second, queuejson.New())
}
