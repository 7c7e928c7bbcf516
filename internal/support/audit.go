package support

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// AuditLogName is the append-only run log kept in the output directory.
const AuditLogName = "audit.log"

type AuditEntry struct {
	TimestampUtc string `json:"timestampUtc"`
	Command      string `json:"command"`
	Root         string `json:"root"`
	Files        int    `json:"files"`
	Issues       int    `json:"issues"`
	Critical     int    `json:"critical"`
	Score        int    `json:"score,omitempty"`
	Grade        string `json:"grade,omitempty"`
	FixedFiles   int    `json:"fixedFiles,omitempty"`
	Fixes        int    `json:"fixes,omitempty"`
	DryRun       bool   `json:"dryRun,omitempty"`
	Result       string `json:"result,omitempty"`
}

// AppendAudit appends one JSON line to <outputDir>/audit.log.
func AppendAudit(outputDir string, entry AuditEntry) error {
	entry.TimestampUtc = time.Now().UTC().Format(time.RFC3339)
	path := filepath.Join(outputDir, AuditLogName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// ReadAudit returns every well-formed entry in the audit log, oldest first.
func ReadAudit(outputDir string) ([]AuditEntry, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, AuditLogName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []AuditEntry
	for _, line := range splitNonEmpty(data) {
		var e AuditEntry
		if json.Unmarshal(line, &e) == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func splitNonEmpty(data []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				out = append(out, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		out = append(out, data[start:])
	}
	return out
}
