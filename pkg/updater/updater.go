// Package updater keeps the locally installed model and document set in
// sync with a remote manifest. The whole workflow is synchronous: probe
// connectivity, fetch the manifest, compare versions, install what changed
// and record the new state.
package updater

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avoss/lantern/internal/models"
	"github.com/avoss/lantern/internal/types"
)

// Status is the per-asset outcome of an update check. Failed is distinct
// from Unchanged so callers can tell "nothing to do" apart from "an install
// was attempted and failed" without parsing the message text.
type Status int

const (
	StatusUnchanged Status = iota
	StatusUpdated
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUpdated:
		return "updated"
	case StatusFailed:
		return "failed"
	default:
		return "unchanged"
	}
}

// AssetResult carries the outcome for one asset; Reason is set on failure.
type AssetResult struct {
	Status Status
	Reason string
}

// Result is the outcome of one update check. Responder and Knowledge are
// non-nil only when the corresponding asset was updated; the previous
// handles stay valid either way.
type Result struct {
	Model     AssetResult
	Documents AssetResult
	Responder types.Responder
	Knowledge types.Retriever
	Message   string
}

// ResponderFactory builds a model handle for a freshly offered model name.
type ResponderFactory func(ctx context.Context, modelName string) (types.Responder, error)

// KnowledgeFactory builds a knowledge base from a downloaded document
// payload. It must fully verify the payload; the file at path is only
// replaced after the factory succeeds.
type KnowledgeFactory func(ctx context.Context, path string, payload []byte) (types.Retriever, error)

type Config struct {
	ManifestURL  string
	MetadataPath string
	DocsPath     string // fallback documents path when the manifest names none

	CheckURL        string
	ProbeTimeout    time.Duration
	FetchTimeout    time.Duration
	DownloadTimeout time.Duration

	NewResponder ResponderFactory
	NewKnowledge KnowledgeFactory

	Logger *zap.Logger
}

type Updater struct {
	config         Config
	probe          *Probe
	meta           *MetadataStore
	fetchClient    *http.Client
	downloadClient *http.Client
	logger         *zap.Logger
}

func NewWithConfig(config Config) (*Updater, error) {
	if config.ManifestURL == "" {
		return nil, fmt.Errorf("updater: manifest URL is required")
	}
	if config.MetadataPath == "" {
		return nil, fmt.Errorf("updater: metadata path is required")
	}
	if config.NewResponder == nil || config.NewKnowledge == nil {
		return nil, fmt.Errorf("updater: responder and knowledge factories are required")
	}
	if config.DocsPath == "" {
		config.DocsPath = "data/kb.json"
	}
	if config.FetchTimeout == 0 {
		config.FetchTimeout = 5 * time.Second
	}
	if config.DownloadTimeout == 0 {
		config.DownloadTimeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Updater{
		config:         config,
		probe:          NewProbe(config.CheckURL, config.ProbeTimeout),
		meta:           NewMetadataStore(config.MetadataPath, config.Logger),
		fetchClient:    &http.Client{Timeout: config.FetchTimeout},
		downloadClient: &http.Client{Timeout: config.DownloadTimeout},
		logger:         config.Logger,
	}, nil
}

// IsOnline exposes the connectivity probe.
func (u *Updater) IsOnline(ctx context.Context) bool {
	return u.probe.IsOnline(ctx)
}

// Check runs one full update cycle. It never returns an error: every
// failure is downgraded to a per-asset status and a human-readable message,
// and the previously installed state stays in effect.
func (u *Updater) Check(ctx context.Context) Result {
	var result Result

	if !u.probe.IsOnline(ctx) {
		result.Message = "Offline: skipped update check."
		return result
	}

	local := u.meta.Load()

	remote, err := u.fetchManifest(ctx)
	if err != nil {
		u.logger.Warn("manifest fetch failed", zap.Error(err))
		result.Message = fmt.Sprintf("Failed to fetch update info: %v", err)
		return result
	}

	var messages []string

	if !remote.Model.IsZero() && modelTriggered(local.Model, remote.Model) {
		responder, err := u.config.NewResponder(ctx, remote.Model.Name)
		if err != nil {
			u.logger.Warn("model install failed",
				zap.String("model", remote.Model.Name), zap.Error(err))
			result.Model = AssetResult{Status: StatusFailed, Reason: err.Error()}
			messages = append(messages, fmt.Sprintf("Failed to download new model: %v", err))
		} else {
			result.Model = AssetResult{Status: StatusUpdated}
			result.Responder = responder
			messages = append(messages, fmt.Sprintf("Model updated to '%s' (version %v).",
				remote.Model.Name, remote.Model.Version))
		}
	}

	if !remote.Documents.IsZero() && documentsTriggered(local.Documents, remote.Documents) && remote.Documents.URL != "" {
		msg := u.installDocuments(ctx, local, remote, &result)
		messages = append(messages, msg)
	}

	if len(messages) > 0 {
		// The record is updated whenever any install path was triggered,
		// even on partial failure, so the same attempt is not repeated on
		// every check.
		if err := u.meta.Save(remote); err != nil {
			u.logger.Warn("metadata save failed", zap.Error(err))
			messages = append(messages, fmt.Sprintf("(Warning) Could not save metadata locally: %v", err))
		}
	} else {
		messages = append(messages, "No updates available.")
	}

	result.Message = strings.Join(messages, " ")
	return result
}

// installDocuments downloads, verifies and swaps in a new document set. The
// new index is built entirely off to the side; the file on disk is only
// touched after the build succeeded.
func (u *Updater) installDocuments(ctx context.Context, local, remote models.Manifest, result *Result) string {
	payload, err := u.download(ctx, remote.Documents.URL)
	if err != nil {
		u.logger.Warn("document download failed", zap.Error(err))
		result.Documents = AssetResult{Status: StatusFailed, Reason: err.Error()}
		return fmt.Sprintf("Failed to download updated documents: %v", err)
	}

	path := remote.Documents.Path
	if path == "" {
		path = local.Documents.Path
	}
	if path == "" {
		path = u.config.DocsPath
	}

	knowledge, err := u.config.NewKnowledge(ctx, path, payload)
	if err != nil {
		u.logger.Warn("knowledge base rebuild failed", zap.Error(err))
		result.Documents = AssetResult{Status: StatusFailed, Reason: err.Error()}
		return fmt.Sprintf("Error updating knowledge base: %v", err)
	}

	if err := u.writeDocuments(path, payload); err != nil {
		u.logger.Warn("document file replace failed", zap.Error(err))
		result.Documents = AssetResult{Status: StatusFailed, Reason: err.Error()}
		return fmt.Sprintf("Error updating knowledge base: %v", err)
	}

	result.Documents = AssetResult{Status: StatusUpdated}
	result.Knowledge = knowledge
	return fmt.Sprintf("Knowledge base updated (version %v).", remote.Documents.Version)
}

// writeDocuments backs up the previous file (best effort) and writes the
// new payload.
func (u *Updater) writeDocuments(path string, payload []byte) error {
	if _, err := os.Stat(path); err == nil {
		// Rename overwrites an existing .backup; a failed backup must not
		// abort the update.
		if err := os.Rename(path, path+".backup"); err != nil {
			u.logger.Warn("document backup failed", zap.String("path", path), zap.Error(err))
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating documents dir: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("writing documents: %w", err)
	}
	return nil
}

// modelTriggered: install when nothing is installed, the offered model is a
// different one, or both versions are present and the remote one is newer.
func modelTriggered(local, remote models.AssetMeta) bool {
	if local.Name == "" || remote.Name != local.Name {
		return true
	}
	return versionNewer(remote.Version, local.Version)
}

// documentsTriggered: install when a version is offered and either nothing
// is installed yet or the offer is newer.
func documentsTriggered(local, remote models.AssetMeta) bool {
	if remote.Version == nil {
		return false
	}
	if local.Version == nil {
		return true
	}
	return versionNewer(remote.Version, local.Version)
}

// versionNewer compares manifest version values without guessing: numbers
// compare numerically, strings lexically, anything else (missing or mixed
// types) is "not newer". Lexical comparison misorders "1.10" vs "1.9";
// known limitation of the manifest format.
func versionNewer(remote, local any) bool {
	if remote == nil || local == nil {
		return false
	}
	switch r := remote.(type) {
	case float64:
		l, ok := local.(float64)
		return ok && r > l
	case string:
		l, ok := local.(string)
		return ok && r > l
	}
	return false
}
