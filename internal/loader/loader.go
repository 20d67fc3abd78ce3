// Package loader decodes a batch of checkpoint files and merges the
// per-file records into one deduplicated snapshot for the tree builder.
//
// Sizes for containers that report none (SafeTensors headers) come from a
// declared, deliberately lossy heuristic: bytes per element inferred from a
// substring match on the dtype tag. It approximates packed and exotic
// layouts as their nearest fixed-width type.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tensorview/tensorview/internal/gguf"
	"github.com/tensorview/tensorview/internal/model"
	"github.com/tensorview/tensorview/internal/safetensors"
)

// Snapshot is the merged result of decoding a batch of files. Tensors are
// deduplicated by name (first file wins); metadata entries are concatenated
// as-is, duplicates included.
type Snapshot struct {
	Tensors  []model.TensorInfo
	Metadata []model.MetadataInfo
	Reports  []model.FileReport

	// TotalParameters sums NumElements over the deduplicated tensor set.
	TotalParameters int64

	// TotalSize sums SizeBytes over the deduplicated tensor set.
	TotalSize int64
}

// Files returns how many files decoded successfully.
func (s *Snapshot) Files() int {
	n := 0
	for _, r := range s.Reports {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Models lists the self-descriptions of the decoded files, one
// "name (architecture)" entry per file that declares either.
func (s *Snapshot) Models() []string {
	var out []string
	for _, r := range s.Reports {
		if r.Err != nil {
			continue
		}
		switch {
		case r.Model != "" && r.Architecture != "":
			out = append(out, fmt.Sprintf("%s (%s)", r.Model, r.Architecture))
		case r.Model != "":
			out = append(out, r.Model)
		case r.Architecture != "":
			out = append(out, r.Architecture)
		}
	}
	return out
}

// fileResult holds one file's decoded records before the ordered merge.
type fileResult struct {
	tensors  []model.TensorInfo
	metadata []model.MetadataInfo
	report   model.FileReport
}

// Load decodes every file and merges the results. Files decode in parallel,
// but the merge always walks the input list in order so the first-wins
// dedup policy stays deterministic. A file that fails to decode is logged
// and recorded in its FileReport; it never aborts the batch.
func Load(ctx context.Context, paths []string, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]fileResult, len(paths))

	// The derived context exists only to stop queued workers early; the
	// caller's context decides whether the load as a whole was cancelled.
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				results[i] = fileResult{report: model.FileReport{Path: path, Err: err}}
				return nil
			}
			results[i] = decodeFile(path)
			return nil
		})
	}
	// Decode errors are carried in the reports, never returned.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	seen := make(map[string]struct{})
	for _, res := range results {
		if res.report.Err != nil {
			logger.Warn("decode failed",
				slog.String("path", res.report.Path),
				slog.String("error", res.report.Err.Error()))
			snap.Reports = append(snap.Reports, res.report)
			continue
		}
		for _, t := range res.tensors {
			if _, dup := seen[t.Name]; dup {
				// Re-sharded checkpoints legitimately repeat names;
				// the first occurrence wins.
				continue
			}
			seen[t.Name] = struct{}{}
			snap.Tensors = append(snap.Tensors, t)
		}
		snap.Metadata = append(snap.Metadata, res.metadata...)
		snap.Reports = append(snap.Reports, res.report)
	}

	for _, t := range snap.Tensors {
		snap.TotalParameters += t.NumElements
		snap.TotalSize += t.SizeBytes
	}

	return snap, nil
}

// DecodeFile decodes one file without the batch merge. Used by the
// inventory indexer, which stores per-file rows rather than the
// deduplicated view.
func DecodeFile(path string) ([]model.TensorInfo, []model.MetadataInfo, model.FileReport) {
	res := decodeFile(path)
	return res.tensors, res.metadata, res.report
}

func decodeFile(path string) fileResult {
	format := DetectFormat(path)
	report := model.FileReport{Path: path, Format: format}

	var (
		tensors  []model.TensorInfo
		metadata []model.MetadataInfo
		err      error
	)
	switch format {
	case model.FormatSafeTensors:
		tensors, metadata, err = safetensors.Decode(path)
	case model.FormatGGUF:
		var file *gguf.File
		if file, err = gguf.ParseFile(path); err == nil {
			tensors = gguf.Flatten(file)
			metadata = gguf.FlattenMetadata(file)
			report.Model = file.Name()
			report.Architecture = file.Architecture()
		}
	default:
		err = fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	if err != nil {
		report.Err = fmt.Errorf("decode %s: %w", path, err)
		return fileResult{report: report}
	}

	for i := range tensors {
		if tensors[i].SizeBytes == 0 && tensors[i].NumElements > 0 {
			tensors[i].SizeBytes = tensors[i].NumElements * HeuristicBytesPerElement(tensors[i].DType)
		}
	}

	report.TensorCount = len(tensors)
	report.MetaCount = len(metadata)
	return fileResult{tensors: tensors, metadata: metadata, report: report}
}

// DetectFormat picks the container format from the file extension.
func DetectFormat(path string) model.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".safetensors":
		return model.FormatSafeTensors
	case ".gguf":
		return model.FormatGGUF
	default:
		return model.FormatUnknown
	}
}

// HeuristicBytesPerElement estimates element width from the dtype tag:
// tags containing "16" count 2 bytes, "8" one byte, "64" eight, everything
// else four. Lossy on packed formats, but stable and documented.
func HeuristicBytesPerElement(dtype string) int64 {
	switch {
	case strings.Contains(dtype, "16"):
		return 2
	case strings.Contains(dtype, "8"):
		return 1
	case strings.Contains(dtype, "64"):
		return 8
	default:
		return 4
	}
}
