package interaction

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Interaction is one named event an antenna can broadcast: the command
// profiles the executor runs and the pool of radio calls shown to observers.
type Interaction struct {
	ID                string   `json:"id"`
	CommandProfileIDs []string `json:"command_profile_ids"`
	Label             string   `json:"label"`   // short name shown in the selection list
	Tooltip           string   `json:"tooltip"` // long description
	FlavorMessages    []string `json:"flavor_messages,omitempty"`
}

// Summary is the subset of an Interaction needed to populate selection widgets.
type Summary struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Tooltip string `json:"tooltip"`
}

// Summary returns the list entry for this interaction.
func (i *Interaction) Summary() Summary {
	return Summary{ID: i.ID, Label: i.Label, Tooltip: i.Tooltip}
}

// HasCommandProfile reports whether tag names one of the interaction's
// command profiles, ignoring case.
func (i *Interaction) HasCommandProfile(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	folder := cases.Fold()
	want := folder.String(tag)
	for _, id := range i.CommandProfileIDs {
		if folder.String(id) == want {
			return true
		}
	}
	return false
}

// Config is the XML document one source contributes.
type Config struct {
	XMLName xml.Name      `xml:"MESInteractions"`
	Items   []ConfigEntry `xml:"MESInteraction"`
}

// ConfigEntry is a raw, unvalidated interaction as written in a source document.
type ConfigEntry struct {
	ID                string   `xml:"MESInteractionId"`
	CommandProfileIDs []string `xml:"CommandProfileIds>CommandProfileId"`
	AntennaCall       string   `xml:"AntennaCall"`
	AntennaCallTip    string   `xml:"AntennaCallTooltip"`
	RadioCalls        []string `xml:"RadioCalls>RadioCall"`
}

// Interaction converts the raw entry into a candidate record.
func (e ConfigEntry) Interaction() *Interaction {
	return &Interaction{
		ID:                e.ID,
		CommandProfileIDs: append([]string(nil), e.CommandProfileIDs...),
		Label:             e.AntennaCall,
		Tooltip:           e.AntennaCallTip,
		FlavorMessages:    append([]string(nil), e.RadioCalls...),
	}
}

// Decode parses one source document.
func Decode(data []byte) (*Config, error) {
	var cfg Config
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode interactions config: %w", err)
	}
	return &cfg, nil
}

// Normalize trims every field, removes blank entries, and de-duplicates
// command profile ids case-insensitively, keeping the first spelling seen.
func Normalize(in *Interaction) {
	if in == nil {
		return
	}

	in.ID = strings.TrimSpace(in.ID)
	in.Label = strings.TrimSpace(in.Label)
	in.Tooltip = strings.TrimSpace(in.Tooltip)

	folder := cases.Fold()
	seen := make(map[string]struct{}, len(in.CommandProfileIDs))
	profiles := make([]string, 0, len(in.CommandProfileIDs))
	for _, id := range in.CommandProfileIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		key := folder.String(id)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		profiles = append(profiles, id)
	}
	in.CommandProfileIDs = profiles

	messages := make([]string, 0, len(in.FlavorMessages))
	for _, msg := range in.FlavorMessages {
		if msg = strings.TrimSpace(msg); msg != "" {
			messages = append(messages, msg)
		}
	}
	in.FlavorMessages = messages
}

var (
	ErrMissingID              = errors.New("missing interaction id")
	ErrMissingCommandProfiles = errors.New("missing command profile ids")
	ErrMissingLabel           = errors.New("missing antenna call label")
	ErrMissingTooltip         = errors.New("missing antenna call tooltip")
)

// Validate reports the first required field an interaction lacks.
// Flavor messages are optional.
func Validate(in *Interaction) error {
	if in == nil {
		return errors.New("nil interaction")
	}
	if strings.TrimSpace(in.ID) == "" {
		return ErrMissingID
	}
	hasProfile := false
	for _, id := range in.CommandProfileIDs {
		if strings.TrimSpace(id) != "" {
			hasProfile = true
			break
		}
	}
	if !hasProfile {
		return ErrMissingCommandProfiles
	}
	if strings.TrimSpace(in.Label) == "" {
		return ErrMissingLabel
	}
	if strings.TrimSpace(in.Tooltip) == "" {
		return ErrMissingTooltip
	}
	return nil
}
