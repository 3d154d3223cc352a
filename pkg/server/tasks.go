package server

import (
	"errors"
	"log"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/nicktill/tinyweather/pkg/storage/badger"
)

const (
	gcDiscardRatio = 0.5
	gcMaxRounds    = 10
)

// CompactValueLog runs BadgerDB value log GC until nothing is left to
// rewrite. It runs once, at shutdown; interval overwrites are the only
// garbage and they accumulate slowly.
func CompactValueLog(store *badger.Storage) error {
	start := time.Now()
	rounds := 0
	for ; rounds < gcMaxRounds; rounds++ {
		err := store.RunGC(gcDiscardRatio)
		if errors.Is(err, badgerdb.ErrNoRewrite) || errors.Is(err, badgerdb.ErrRejected) {
			break
		}
		if err != nil {
			return err
		}
	}
	log.Printf("BadgerDB GC finished in %v (%d value log files rewritten)",
		time.Since(start).Round(time.Millisecond), rounds)
	return nil
}
