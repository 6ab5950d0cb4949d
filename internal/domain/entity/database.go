package entity

import "time"

// Database instantánea en memoria de todo lo visible para un usuario en un único punto
// en el tiempo (exportación y diagnóstico).
type Database struct {
	PartsSchemaVersion    int                `json:"partsSchemaVersion" yaml:"partsSchemaVersion"`
	ProjectsSchemaVersion int                `json:"projectsSchemaVersion" yaml:"projectsSchemaVersion"`
	SnapshotUTC           time.Time          `json:"snapshotUtc" yaml:"snapshotUtc"`
	Parts                 []*Part            `json:"parts" yaml:"parts"`
	PartTypes             []*PartType        `json:"partTypes" yaml:"partTypes"`
	Projects              []*Project         `json:"projects" yaml:"projects"`
	StoredFiles           []*StoredFile      `json:"storedFiles" yaml:"storedFiles"`
	OAuthCredentials      []*OAuthCredential `json:"oAuthCredentials" yaml:"oAuthCredentials"`
}

// NewDatabase inicializa las colecciones vacías (nunca nil).
func NewDatabase(now time.Time) *Database {
	return &Database{
		PartsSchemaVersion:    PartSchemaVersion,
		ProjectsSchemaVersion: ProjectSchemaVersion,
		SnapshotUTC:           now.UTC(),
		Parts:                 []*Part{},
		PartTypes:             []*PartType{},
		Projects:              []*Project{},
		StoredFiles:           []*StoredFile{},
		OAuthCredentials:      []*OAuthCredential{},
	}
}

// Now hora UTC truncada a microsegundos, la precisión común de todos los backends.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
