// Package roster reads the administrative seed file that pre-provisions clans
// and allow-listed members.
package roster

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aidar/rookie-board/internal/domain"
)

// Clan is a clan entry of the roster file.
type Clan struct {
	Name    string `yaml:"name"`
	LogoURL string `yaml:"logo_url"`
}

// Member is a pre-provisioned member entry. Clan refers to a clan by name.
type Member struct {
	GitHubUsername string      `yaml:"github_username"`
	Name           string      `yaml:"name"`
	Role           domain.Role `yaml:"role"`
	Clan           string      `yaml:"clan"`
	AvatarURL      string      `yaml:"avatar_url"`
}

// Roster is the whole seed file.
type Roster struct {
	Clans   []Clan   `yaml:"clans"`
	Members []Member `yaml:"members"`
}

// Load reads and validates a roster file.
func Load(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a roster from r, rejecting unknown fields, and normalizes it:
// usernames are trimmed and lower-cased, an empty role means rookie.
func Parse(r io.Reader) (*Roster, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}

	var roster Roster
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&roster); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode roster: %w", err)
	}

	roster.normalize()
	if err := roster.Validate(); err != nil {
		return nil, err
	}
	return &roster, nil
}

func (r *Roster) normalize() {
	for i := range r.Clans {
		r.Clans[i].Name = strings.TrimSpace(r.Clans[i].Name)
		r.Clans[i].LogoURL = strings.TrimSpace(r.Clans[i].LogoURL)
	}
	for i := range r.Members {
		m := &r.Members[i]
		m.GitHubUsername = strings.ToLower(strings.TrimSpace(m.GitHubUsername))
		m.Name = strings.TrimSpace(m.Name)
		m.Clan = strings.TrimSpace(m.Clan)
		if m.Role == "" {
			m.Role = domain.RoleRookie
		}
		if m.Name == "" {
			m.Name = m.GitHubUsername
		}
	}
}

// Validate checks roles, clan references and username uniqueness.
func (r *Roster) Validate() error {
	clans := make(map[string]struct{}, len(r.Clans))
	for i, c := range r.Clans {
		if c.Name == "" {
			return fmt.Errorf("clans[%d]: name is required", i)
		}
		if _, dup := clans[c.Name]; dup {
			return fmt.Errorf("clans[%d]: duplicate clan %q", i, c.Name)
		}
		clans[c.Name] = struct{}{}
	}

	usernames := make(map[string]struct{}, len(r.Members))
	for i, m := range r.Members {
		if m.GitHubUsername == "" {
			return fmt.Errorf("members[%d]: github_username is required", i)
		}
		if _, dup := usernames[m.GitHubUsername]; dup {
			return fmt.Errorf("members[%d]: duplicate github_username %q", i, m.GitHubUsername)
		}
		usernames[m.GitHubUsername] = struct{}{}

		if !m.Role.Valid() {
			return fmt.Errorf("members[%d]: unknown role %q", i, m.Role)
		}
		if m.Clan != "" {
			if _, ok := clans[m.Clan]; !ok {
				return fmt.Errorf("members[%d]: unknown clan %q", i, m.Clan)
			}
		}
	}
	return nil
}
