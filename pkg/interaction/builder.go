package interaction

import (
	"fmt"
	"log/slog"
	"strconv"
)

// RejectionKind classifies why something was left out of (or replaced in)
// the registry.
type RejectionKind string

const (
	RejectionConfigDecode RejectionKind = "config_decode_error"
	RejectionValidation   RejectionKind = "validation_rejected"
	RejectionDuplicate    RejectionKind = "duplicate_identifier"
)

// Rejection reports one isolated problem found while building a registry.
// Duplicates are informational: the later record was kept.
type Rejection struct {
	Kind          RejectionKind `json:"kind"`
	Source        string        `json:"source"`
	InteractionID string        `json:"interaction_id,omitempty"`
	Reason        string        `json:"reason"`
}

func (r Rejection) String() string {
	if r.InteractionID == "" {
		return fmt.Sprintf("%s in %s: %s", r.Kind, r.Source, r.Reason)
	}
	return fmt.Sprintf("%s in %s (%s): %s", r.Kind, r.Source, r.InteractionID, r.Reason)
}

// Source is one raw configuration document and the name of whoever contributed it.
type Source struct {
	Name string
	Data []byte
}

// Builder merges sources into a Registry.
type Builder struct {
	// StrictIDs rejects entries without an explicit id instead of
	// naming them "<source>#<position>".
	StrictIDs bool

	logger *slog.Logger
}

// NewBuilder creates a registry builder.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

// prepareCandidate turns a raw entry into a normalized candidate.
// Swapped out in tests.
var prepareCandidate = func(entry ConfigEntry) *Interaction {
	candidate := entry.Interaction()
	Normalize(candidate)
	return candidate
}

// Build decodes, normalizes, validates and merges every source in order.
// Later sources overwrite earlier ones on id collision. A failing source
// contributes nothing and is reported; Build itself never fails.
func (b *Builder) Build(sources []Source) (*Registry, []Rejection) {
	reg := newRegistry()
	var rejections []Rejection

	for _, src := range sources {
		valid, rejected := b.buildSource(src)
		rejected = append(rejected, b.merge(reg, src, valid)...)
		rejections = append(rejections, rejected...)
		b.logger.Debug("Interactions source processed",
			"source", src.Name,
			"loaded", len(valid),
			"rejected", len(rejected))
	}

	b.logger.Info("Interaction registry built",
		"sources", len(sources),
		"interactions", reg.Len(),
		"rejections", len(rejections))

	return reg, rejections
}

// buildSource returns the valid candidates of one source without touching
// the registry. A panic discards every candidate of the source.
func (b *Builder) buildSource(src Source) (valid []*Interaction, rejections []Rejection) {
	defer func() {
		if p := recover(); p != nil {
			rejection := Rejection{
				Kind:   RejectionConfigDecode,
				Source: src.Name,
				Reason: fmt.Sprintf("panic while loading source: %v", p),
			}
			b.logger.Error("Failed to load interactions source", "source", src.Name, "error", rejection.Reason)
			valid = nil
			rejections = append(rejections, rejection)
		}
	}()

	cfg, err := Decode(src.Data)
	if err != nil {
		b.logger.Error("Failed to load interactions source", "source", src.Name, "error", err)
		return nil, []Rejection{{
			Kind:   RejectionConfigDecode,
			Source: src.Name,
			Reason: err.Error(),
		}}
	}

	if len(cfg.Items) == 0 {
		b.logger.Debug("Interactions source contained no interactions", "source", src.Name)
		return nil, nil
	}

	staged := make([]*Interaction, 0, len(cfg.Items))
	for i, entry := range cfg.Items {
		candidate := prepareCandidate(entry)

		if candidate.ID == "" && !b.StrictIDs {
			candidate.ID = src.Name + "#" + strconv.Itoa(i+1)
		}

		if err := Validate(candidate); err != nil {
			b.logger.Warn("Rejected invalid interaction",
				"source", src.Name,
				"position", i+1,
				"interaction_id", candidate.ID,
				"reason", err)
			rejections = append(rejections, Rejection{
				Kind:          RejectionValidation,
				Source:        src.Name,
				InteractionID: candidate.ID,
				Reason:        err.Error(),
			})
			continue
		}
		staged = append(staged, candidate)
	}

	return staged, rejections
}

// merge adds one source's candidates, reporting overwritten ids.
func (b *Builder) merge(reg *Registry, src Source, valid []*Interaction) []Rejection {
	var rejections []Rejection
	for _, in := range valid {
		if reg.put(in) {
			b.logger.Info("Duplicate interaction id, overwriting", "source", src.Name, "interaction_id", in.ID)
			rejections = append(rejections, Rejection{
				Kind:          RejectionDuplicate,
				Source:        src.Name,
				InteractionID: in.ID,
				Reason:        "overwrote an earlier definition of this id",
			})
		}
	}
	return rejections
}
