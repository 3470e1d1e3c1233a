package organizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tracksync/internal/services"
)

// ActionType names what the executor does with one file.
type ActionType string

const (
	ActionMove   ActionType = "MOVE"
	ActionDelete ActionType = "DELETE"
	ActionKeep   ActionType = "KEEP"
)

// Reasons attached to generated actions.
const (
	ReasonStandardize     = "Standardizing folder structure and naming"
	ReasonAlreadyPlaced   = "Already correctly named and placed"
	ReasonInsufficient    = "insufficient metadata for organization"
	reasonDuplicatePrefix = "Duplicate of higher quality version: "
)

// Action is one planned filesystem change. Paths are absolute local paths.
type Action struct {
	Type        ActionType `json:"type"`
	TrackID     string     `json:"trackId,omitempty"`
	SourcePath  string     `json:"sourcePath"`
	TargetPath  string     `json:"targetPath,omitempty"`
	Reason      string     `json:"reason"`
	QualityInfo string     `json:"qualityInfo,omitempty"`
	SizeBytes   int64      `json:"sizeBytes,omitempty"`
}

// Stats counts actions by type.
type Stats struct {
	ToMove             int   `json:"toMove"`
	ToDelete           int   `json:"toDelete"`
	ToKeep             int   `json:"toKeep"`
	TotalSizeToRecover int64 `json:"totalSizeToRecover"`
}

// Plan is a self-contained description of a library reorganization. It holds
// no live references so it can be saved, reviewed, and applied later.
type Plan struct {
	LibraryRoot string    `json:"libraryRoot"`
	Policy      string    `json:"policy"`
	GeneratedAt time.Time `json:"generatedAt"`
	Actions     []Action  `json:"actions"`
	Stats       Stats     `json:"stats"`
}

// Validate rejects plans the executor cannot apply safely.
func (p *Plan) Validate() error {
	if p == nil {
		return services.Wrap(services.ErrValidation, "organizer", "validate plan", "plan is empty", nil)
	}
	if strings.TrimSpace(p.LibraryRoot) == "" {
		return services.Wrap(services.ErrValidation, "organizer", "validate plan", "libraryRoot is required", nil)
	}
	targets := make(map[string]int, len(p.Actions))
	for i, action := range p.Actions {
		where := fmt.Sprintf("action %d", i)
		if strings.TrimSpace(action.SourcePath) == "" {
			return services.Wrap(services.ErrValidation, "organizer", "validate plan", where+" has no sourcePath", nil)
		}
		switch action.Type {
		case ActionKeep, ActionDelete:
		case ActionMove:
			if strings.TrimSpace(action.TargetPath) == "" {
				return services.Wrap(services.ErrValidation, "organizer", "validate plan", where+" is a MOVE without targetPath", nil)
			}
			key := filepath.Clean(action.TargetPath)
			if prev, ok := targets[key]; ok {
				return services.Wrap(services.ErrValidation, "organizer", "validate plan",
					fmt.Sprintf("actions %d and %d share target %s", prev, i, action.TargetPath), nil)
			}
			targets[key] = i
		default:
			return services.Wrap(services.ErrValidation, "organizer", "validate plan",
				fmt.Sprintf("%s has unknown type %q", where, action.Type), nil)
		}
	}
	return nil
}

// SavePlan writes plan as indented JSON, replacing path atomically.
func SavePlan(path string, plan *Plan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure plan directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".plan-*.json")
	if err != nil {
		return fmt.Errorf("create plan file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write plan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close plan file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace plan file: %w", err)
	}
	return nil
}

// LoadPlan reads and validates a plan written by SavePlan.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, services.Wrap(services.ErrValidation, "organizer", "load plan", "plan is not valid JSON", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}
