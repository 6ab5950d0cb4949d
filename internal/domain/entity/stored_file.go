package entity

import (
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// StoredFileType clasifica un archivo subido por el usuario.
type StoredFileType int

const (
	StoredFileImage StoredFileType = iota + 1
	StoredFileDatasheet
	StoredFilePinout
	StoredFileReference
	StoredFileAttachment
)

func (t StoredFileType) String() string {
	switch t {
	case StoredFileImage:
		return "image"
	case StoredFileDatasheet:
		return "datasheet"
	case StoredFilePinout:
		return "pinout"
	case StoredFileReference:
		return "reference"
	case StoredFileAttachment:
		return "attachment"
	default:
		return "unknown"
	}
}

// Valid indica si el valor pertenece a la enumeración.
func (t StoredFileType) Valid() bool {
	return t >= StoredFileImage && t <= StoredFileAttachment
}

// StoredFile metadatos de un archivo (datasheet, imagen...) asociado a una parte.
// El contenido binario vive fuera del contrato; aquí solo su registro.
type StoredFile struct {
	StoredFileID     int64          `json:"storedFileId" yaml:"storedFileId"`
	FileName         string         `json:"fileName" yaml:"fileName"` // único en todo el almacén
	OriginalFileName string         `json:"originalFileName,omitempty" yaml:"originalFileName,omitempty"`
	StoredFileType   StoredFileType `json:"storedFileType" yaml:"storedFileType"`
	PartID           int64          `json:"partId" yaml:"partId"`
	FileLength       int64          `json:"fileLength" yaml:"fileLength"`
	Crc32            uint32         `json:"crc32" yaml:"crc32"`
	UserID           *int           `json:"userId,omitempty" yaml:"userId,omitempty"`
	DateCreatedUTC   time.Time      `json:"dateCreatedUtc" yaml:"dateCreatedUtc"`
}

// EnsureFileName genera un nombre único (uuid + extensión original) si no se indicó uno.
func (f *StoredFile) EnsureFileName() {
	if strings.TrimSpace(f.FileName) != "" {
		return
	}
	f.FileName = uuid.NewString() + strings.ToLower(filepath.Ext(f.OriginalFileName))
}

// Clone devuelve una copia profunda.
func (f *StoredFile) Clone() *StoredFile {
	c := *f
	if f.UserID != nil {
		v := *f.UserID
		c.UserID = &v
	}
	return &c
}

// Validate verifica las invariantes del archivo.
func (f *StoredFile) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.FileName, validation.Required, validation.RuneLength(1, 255)),
		validation.Field(&f.StoredFileType, validation.By(func(value interface{}) error {
			if t, ok := value.(StoredFileType); ok && !t.Valid() {
				return validation.NewError("validation_file_type", "tipo de archivo inválido")
			}
			return nil
		})),
		validation.Field(&f.PartID, validation.Required),
		validation.Field(&f.FileLength, validation.Min(int64(0))),
	)
}
