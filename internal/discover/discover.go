// Package discover expands the user's path arguments (files, directories,
// glob patterns) into the concrete list of checkpoint files to decode.
package discover

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IndexFileName is the sharded-checkpoint index emitted by Hugging Face
// tooling. When present in a directory, its weight_map names the shard
// files to load.
const IndexFileName = "model.safetensors.index.json"

var checkpointExts = map[string]bool{
	".safetensors": true,
	".gguf":        true,
}

// Collect expands each argument into checkpoint file paths. Arguments may be
// literal files, directories, or glob patterns. Directories are scanned for
// *.safetensors and *.gguf, recursively when recursive is set; a directory
// holding a shard index contributes exactly the shards the index names.
// Unmatched patterns and unknown extensions are skipped, not errors. The
// result is sorted and deduplicated.
func Collect(args []string, recursive bool) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			// Not a pattern, or a pattern matching nothing: try it as
			// a literal path and skip if absent.
			if _, statErr := os.Stat(arg); statErr == nil {
				matches = []string{arg}
			}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if info.IsDir() {
				found, err := scanDir(match, recursive)
				if err != nil {
					return nil, err
				}
				for _, f := range found {
					add(f)
				}
				continue
			}
			if checkpointExts[strings.ToLower(filepath.Ext(match))] {
				add(match)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// scanDir lists checkpoint files in dir. A shard index takes precedence
// over a raw directory scan.
func scanDir(dir string, recursive bool) ([]string, error) {
	if shards, ok := readShardIndex(dir); ok {
		return shards, nil
	}

	var files []string
	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && checkpointExts[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		return files, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && checkpointExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// shardIndex mirrors the weight_map layout of model.safetensors.index.json.
type shardIndex struct {
	WeightMap map[string]string `json:"weight_map"`
}

// readShardIndex loads the shard list named by a directory's index file.
// Returns ok=false when there is no index or it cannot be used.
func readShardIndex(dir string) ([]string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, IndexFileName)) //nolint:gosec // G304: dir comes from the user's arguments.
	if err != nil {
		return nil, false
	}

	var idx shardIndex
	if err := json.Unmarshal(data, &idx); err != nil || len(idx.WeightMap) == 0 {
		return nil, false
	}

	seen := make(map[string]struct{})
	var shards []string
	for _, shard := range idx.WeightMap {
		if _, ok := seen[shard]; ok {
			continue
		}
		seen[shard] = struct{}{}
		shards = append(shards, filepath.Join(dir, shard))
	}
	sort.Strings(shards)
	return shards, true
}
