package ingestworker

import (
	"context"
	"fmt"
	"path"
	"strings"

	"memgate/internal/apierr"
	"memgate/internal/archive"
	"memgate/internal/codeextract"
	"memgate/internal/persistence"
)

// languageForExt maps a source file's extension to the codeextract language
// identifier, the inverse of the tag table codeextract uses for fenced
// code-block recovery.
var languageForExt = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".go":   "go",
	".rs":   "rust",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".hpp":  "cpp",
}

// extForLanguage is languageForExt's inverse, used to synthesize a path for
// a code block recovered from mixed content.
var extForLanguage = map[string]string{
	"python":     "py",
	"javascript": "js",
	"typescript": "ts",
	"go":         "go",
	"rust":       "rs",
	"java":       "java",
	"c":          "c",
	"cpp":        "cpp",
}

// Handler implements jobqueue.Handler, turning a job's blob into one or more
// documents and forwarding them to the preprocessor.
type Handler struct {
	Blobs        persistence.BlobStore
	Preprocessor *PreprocessorClient
	BatchSize    int
}

// HandleDocument implements C11 step 5's document case: the blob is sent to
// the preprocessor as-is, plus any source code blocks recoverable from its
// text are extracted and sent alongside it as synthetic entries.
func (h *Handler) HandleDocument(ctx context.Context, job persistence.Job) (map[string]any, error) {
	doc, content, err := h.Blobs.Get(ctx, job.Workspace, job.DocID)
	if err != nil {
		return nil, apierr.Wrap(apierr.TransientUpstream, err)
	}

	files := []File{{Name: doc.FileName, Content: content}}
	origin := strings.TrimSuffix(doc.FileName, path.Ext(doc.FileName))
	for i, block := range codeextract.ExtractBlocks(string(content)) {
		ext := extForLanguage[block.Language]
		if ext == "" {
			continue
		}
		synthPath := fmt.Sprintf("%s:block_%d.%s", origin, i, ext)
		result := codeextract.ParseFile(synthPath, block.Content, block.Language)
		files = append(files, File{Name: synthPath, Content: []byte(codeextract.BuildDocument(result))})
	}

	return h.sendBatches(ctx, job.Workspace, files)
}

// HandleCodebase implements C11 step 5's codebase case: the archive is
// unpacked, each kept file is structurally parsed into a natural-language
// document, and the documents are streamed to the preprocessor in batches.
func (h *Handler) HandleCodebase(ctx context.Context, job persistence.Job) (map[string]any, error) {
	doc, content, err := h.Blobs.Get(ctx, job.Workspace, job.DocID)
	if err != nil {
		return nil, apierr.Wrap(apierr.TransientUpstream, err)
	}

	members := archive.Unpack(doc.FileName, content)
	if len(members) == 0 {
		return nil, apierr.New(apierr.PermanentUpstream, "codebase archive yielded no files", nil)
	}

	files := make([]File, 0, len(members))
	for _, m := range members {
		language := languageForExt[strings.ToLower(path.Ext(m.Path))]
		if language == "" {
			continue
		}
		result := codeextract.ParseFile(m.Path, string(m.Content), language)
		files = append(files, File{Name: m.Path, Content: []byte(codeextract.BuildDocument(result))})
	}
	if len(files) == 0 {
		return nil, apierr.New(apierr.PermanentUpstream, "no recognized source files in codebase archive", nil)
	}

	return h.sendBatches(ctx, job.Workspace, files)
}

func (h *Handler) sendBatches(ctx context.Context, workspace string, files []File) (map[string]any, error) {
	batchSize := h.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	sent := 0
	var errs []string
	for start := 0; start < len(files); start += batchSize {
		end := start + batchSize
		if end > len(files) {
			end = len(files)
		}
		result, err := h.Preprocessor.Send(ctx, workspace, files[start:end])
		if err != nil {
			return nil, err
		}
		sent += result.DocumentsSent
		errs = append(errs, result.Errors...)
	}

	return map[string]any{
		"documents_sent": sent,
		"errors":         errs,
	}, nil
}
