package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// UnknownDeveloperName подставляется в developerName, если разработчик не найден
const UnknownDeveloperName = "Unknown developer"

// App представляет опубликованное приложение в коллекции apps.
// DeveloperName — снимок имени разработчика на момент публикации и может устареть.
type App struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category,omitempty"`
	Platforms     Platforms `json:"platforms"`
	FileURL       string    `json:"fileUrl"`
	FileName      string    `json:"fileName,omitempty"`
	FileSize      int64     `json:"fileSize"`
	Images        []string  `json:"images"`
	DeveloperID   string    `json:"developerId"`
	DeveloperName string    `json:"developerName,omitempty"`
	Downloads     int64     `json:"downloads"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Platforms — множество целевых платформ приложения, хранится отсортированным списком.
// При декодировании принимает массив, объект {"android": true} или строку с JSON внутри.
type Platforms []string

// NewPlatforms нормализует имена платформ: обрезает пробелы, убирает пустые и дубликаты
func NewPlatforms(names ...string) Platforms {
	seen := make(map[string]struct{}, len(names))
	out := make(Platforms, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Has сообщает, поддерживает ли приложение платформу
func (p Platforms) Has(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range p {
		if n == name {
			return true
		}
	}
	return false
}

func (p Platforms) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(p))
}

func (p *Platforms) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Platforms{}
		return nil
	}

	switch data[0] {
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("platforms: %w", err)
		}
		*p = NewPlatforms(list...)
		return nil
	case '{':
		var set map[string]bool
		if err := json.Unmarshal(data, &set); err != nil {
			return fmt.Errorf("platforms: %w", err)
		}
		names := make([]string, 0, len(set))
		for name, enabled := range set {
			if enabled {
				names = append(names, name)
			}
		}
		*p = NewPlatforms(names...)
		return nil
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("platforms: %w", err)
		}
		parsed, err := ParsePlatforms(raw)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}
	return fmt.Errorf("platforms: unsupported JSON value %s", data)
}

// ParsePlatforms разбирает значение поля формы: JSON (массив/объект) или список через запятую
func ParsePlatforms(raw string) (Platforms, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Platforms{}, nil
	}
	if raw[0] == '[' || raw[0] == '{' {
		var p Platforms
		if err := p.UnmarshalJSON([]byte(raw)); err != nil {
			return nil, err
		}
		return p, nil
	}
	return NewPlatforms(strings.Split(raw, ",")...), nil
}
