// cachedump inspects a jsdeminify BadgerCache: the optional embedded-KV
// rename cache backend used instead of one-file-per-function for large
// repositories.
//
// Usage:
//
//	cachedump --dir /path/to/.jsdeminify-cache-badger
//
// If --dir is not given, reads JSDEMINIFY_CACHE_DIR from the environment,
// falling back to ".jsdeminify-cache".
//
// Exit codes:
//
//	0 — success (including "empty cache", which prints a message and exits 0)
//	1 — error opening or reading the database
package main

import (
	"bytes"
	"encoding/gob"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// cacheKeyPrefix must match internal/cache/badgercache.go exactly.
const cacheKeyPrefix = "jsdeminify/cache/v1/"

// entry mirrors cache.Entry's on-disk gob shape without importing the
// cache package, so this tool can inspect a database even if that
// package's Entry shape drifts in a future version it hasn't been
// rebuilt against.
type entry struct {
	Hash      string
	Mapping   mapping
	Timestamp int64
	Model     string
}

type mapping struct {
	FunctionName string
	Description  string
	Renames      map[string]string
}

func main() {
	dirFlag := flag.String("dir", "", "path to the BadgerCache directory (overrides JSDEMINIFY_CACHE_DIR env var)")
	flag.Parse()

	dir := *dirFlag
	if dir == "" {
		dir = os.Getenv("JSDEMINIFY_CACHE_DIR")
	}
	if dir == "" {
		dir = ".jsdeminify-cache"
	}

	fmt.Printf("Cache path: %s\n", dir)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Println("Cache directory does not exist. No run has written to it yet.")
		os.Exit(0)
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil).WithReadOnly(true)
	db, err := badger.Open(opts)
	if err != nil {
		fatalf("open BadgerDB at %s: %v", dir, err)
	}
	defer func() { _ = db.Close() }()

	var entries []entry
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(cacheKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw, copyErr := it.Item().ValueCopy(nil)
			if copyErr != nil {
				fmt.Fprintf(os.Stderr, "warning: skipping entry, copy failed: %v\n", copyErr)
				continue
			}
			e, decodeErr := gobDecodeEntry(raw)
			if decodeErr != nil {
				fmt.Fprintf(os.Stderr, "warning: skipping entry, decode failed: %v\n", decodeErr)
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		fatalf("read BadgerDB: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("\nNo cached entries found.")
		os.Exit(0)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Hash < entries[j].Hash })

	fmt.Printf("\nFound %d entr%s:\n", len(entries), plural(len(entries), "y", "ies"))
	fmt.Println(strings.Repeat("─", 80))

	mapped := 0
	for i, e := range entries {
		age := time.Since(time.UnixMilli(e.Timestamp)).Round(time.Second)
		fmt.Printf("\n[%d] Hash:     %s\n", i+1, e.Hash)
		fmt.Printf("    Model:    %s\n", e.Model)
		fmt.Printf("    Age:      %s\n", age)

		if e.Mapping.FunctionName == "" && e.Mapping.Description == "" && len(e.Mapping.Renames) == 0 {
			fmt.Println("    Mapping:  (unmapped — oracle had nothing to suggest)")
			continue
		}
		mapped++
		if e.Mapping.FunctionName != "" {
			fmt.Printf("    Renamed to: %s\n", e.Mapping.FunctionName)
		}
		if e.Mapping.Description != "" {
			fmt.Printf("    Description: %s\n", e.Mapping.Description)
		}
		if len(e.Mapping.Renames) > 0 {
			names := make([]string, 0, len(e.Mapping.Renames))
			for old := range e.Mapping.Renames {
				names = append(names, old)
			}
			sort.Strings(names)
			fmt.Println("    Renames:")
			for _, old := range names {
				fmt.Printf("      %s -> %s\n", old, e.Mapping.Renames[old])
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("─", 80))
	fmt.Printf("Summary: %d entr%s, %d mapped, cache path: %s\n",
		len(entries), plural(len(entries), "y", "ies"), mapped, dir)
}

func gobDecodeEntry(raw []byte) (entry, error) {
	var e entry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&e); err != nil {
		return entry{}, err
	}
	return e, nil
}

func plural(n int, singular, pluralSuffix string) string {
	if n == 1 {
		return singular
	}
	return pluralSuffix
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "cachedump: "+format+"\n", args...)
	os.Exit(1)
}
