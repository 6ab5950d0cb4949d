package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"gopkg.in/yaml.v3"
)

// Format serialización de exportación/importación.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv" // solo importación de partes
)

// ParseFormat acepta json, yaml/yml y csv sin distinguir mayúsculas.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("formato %q: %w: use json, yaml o csv", s, domain.ErrValidation)
}

// ExportOptions opciones de exportación.
type ExportOptions struct {
	Format Format
	// IncludeSecrets conserva access/refresh tokens de las credenciales OAuth.
	IncludeSecrets bool
}

// ExportUseCase serializa la instantánea visible para un usuario.
type ExportUseCase struct {
	snapshots SnapshotReader
}

// NewExportUseCase construye el caso de uso.
func NewExportUseCase(snapshots SnapshotReader) *ExportUseCase {
	return &ExportUseCase{snapshots: snapshots}
}

// Export escribe la instantánea en w.
func (e *ExportUseCase) Export(ctx context.Context, uc *entity.UserContext, opts ExportOptions, w io.Writer) error {
	db, err := e.snapshots.GetDatabase(ctx, uc)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if !opts.IncludeSecrets {
		for _, c := range db.OAuthCredentials {
			c.AccessToken = ""
			c.RefreshToken = ""
		}
	}

	switch opts.Format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(db)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(db); err == nil {
			err = enc.Close()
		}
	default:
		return fmt.Errorf("export: formato %q: %w", opts.Format, domain.ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
