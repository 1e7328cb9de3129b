package model

import "strings"

// codeExtensions and configExtensions are the implementation's own
// allow-lists; the source dialects never specify this classification
// exhaustively, so this table is the contract (see DESIGN.md).
var codeExtensions = map[string]bool{
	"go": true, "py": true, "js": true, "ts": true, "tsx": true, "jsx": true,
	"rs": true, "java": true, "kt": true, "c": true, "h": true, "cpp": true,
	"hpp": true, "cc": true, "cs": true, "rb": true, "php": true, "swift": true,
	"scala": true, "sh": true, "bash": true, "zsh": true, "sql": true,
	"lua": true, "pl": true, "r": true, "m": true, "mm": true, "vue": true,
	"svelte": true, "html": true, "css": true, "scss": true, "less": true,
}

var configExtensions = map[string]bool{
	"json": true, "yaml": true, "yml": true, "toml": true, "ini": true,
	"env": true, "xml": true, "properties": true, "cfg": true, "conf": true,
}

// FileExtension returns the lowercase extension (without the leading dot)
// of filePath, or "" when there is none.
func FileExtension(filePath string) string {
	idx := strings.LastIndex(filePath, ".")
	if idx < 0 || idx == len(filePath)-1 {
		return ""
	}
	// Guard against a dot inside a directory name, and against dotfiles
	// with no extension, e.g. ".bashrc".
	slashIdx := strings.LastIndexAny(filePath, "/\\")
	if idx <= slashIdx+1 {
		return ""
	}
	return strings.ToLower(filePath[idx+1:])
}

// IsCodeFile classifies ext (without leading dot) as source code.
func IsCodeFile(ext string) bool { return codeExtensions[strings.ToLower(ext)] }

// IsConfigFile classifies ext (without leading dot) as configuration.
func IsConfigFile(ext string) bool { return configExtensions[strings.ToLower(ext)] }

// FileMetadata is derived metrics about a file touched by a tool
// operation.
type FileMetadata struct {
	FilePath      string
	FileExtension string
	IsCodeFile    bool
	IsConfigFile  bool
	LinesBefore   *int
	LinesAfter    *int
	LinesAdded    int
	LinesRemoved  int
	ContentSize   int
	IsBulkEdit    bool
	IsRefactoring bool
}

// NewFileMetadata classifies filePath and derives the line-delta fields
// from optional before/after line counts, per spec's invariant:
// lines_added = max(0, after-before), lines_removed = max(0, before-after).
func NewFileMetadata(filePath string, before, after *int, contentSize int) FileMetadata {
	ext := FileExtension(filePath)
	fm := FileMetadata{
		FilePath:      filePath,
		FileExtension: ext,
		IsCodeFile:    IsCodeFile(ext),
		IsConfigFile:  IsConfigFile(ext),
		LinesBefore:   before,
		LinesAfter:    after,
		ContentSize:   contentSize,
	}
	if before != nil && after != nil {
		if *after > *before {
			fm.LinesAdded = *after - *before
		}
		if *before > *after {
			fm.LinesRemoved = *before - *after
		}
	}
	return fm
}

// TotalLineChanges is added + removed.
func (fm FileMetadata) TotalLineChanges() int { return fm.LinesAdded + fm.LinesRemoved }

// NetLineChange is added - removed.
func (fm FileMetadata) NetLineChange() int { return fm.LinesAdded - fm.LinesRemoved }

// CountLines counts lines the way the extractor measures before/after
// content: the number of '\n' bytes, plus one more if the content is
// non-empty and does not end with '\n'.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
