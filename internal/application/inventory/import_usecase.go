package inventory

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jhoicas/partsbin/internal/application/dto"
	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// ImportOptions opciones de importación.
type ImportOptions struct {
	Format Format
	// Charset del CSV: utf-8 (por defecto), iso-8859-1 o windows-1252.
	Charset string
}

// ImportUseCase carga un catálogo (instantánea JSON/YAML o planilla CSV de partes).
// Los identificadores del archivo no se conservan: tipos y proyectos se resuelven por
// nombre y las partes por número de parte del propio usuario.
type ImportUseCase struct {
	catalog CatalogWriter
}

// NewImportUseCase construye el caso de uso.
func NewImportUseCase(catalog CatalogWriter) *ImportUseCase {
	return &ImportUseCase{catalog: catalog}
}

// Import lee r según opts y escribe en el almacenamiento a nombre de uc.
// No es atómico: ante un error, lo ya importado permanece.
func (i *ImportUseCase) Import(ctx context.Context, uc *entity.UserContext, opts ImportOptions, r io.Reader) (*dto.ImportReportDTO, error) {
	rep := &dto.ImportReportDTO{}
	switch opts.Format {
	case FormatJSON, FormatYAML:
		db := &entity.Database{}
		var err error
		if opts.Format == FormatJSON {
			err = json.NewDecoder(r).Decode(db)
		} else {
			err = yaml.NewDecoder(r).Decode(db)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("import: %w: %w", domain.ErrValidation, err)
		}
		if err := i.importDatabase(ctx, uc, db, rep); err != nil {
			return rep, err
		}
	case FormatCSV:
		dec, err := charsetReader(opts.Charset, r)
		if err != nil {
			return nil, err
		}
		if err := i.importCSV(ctx, uc, dec, rep); err != nil {
			return rep, err
		}
	default:
		return nil, fmt.Errorf("import: formato %q: %w", opts.Format, domain.ErrValidation)
	}
	return rep, nil
}

func charsetReader(charset string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case "iso-8859-1", "iso8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	}
	return nil, fmt.Errorf("import: charset %q: %w", charset, domain.ErrValidation)
}

// ── Instantánea ──────────────────────────────────────────────────────────────

func (i *ImportUseCase) importDatabase(ctx context.Context, uc *entity.UserContext, db *entity.Database, rep *dto.ImportReportDTO) error {
	typeIDs, err := i.importPartTypes(ctx, uc, db.PartTypes, rep)
	if err != nil {
		return err
	}

	projectIDs := make(map[int64]int64, len(db.Projects))
	for _, p := range db.Projects {
		if p == nil {
			continue
		}
		id, err := i.resolveProject(ctx, uc, p, rep)
		if err != nil {
			return err
		}
		projectIDs[p.ProjectID] = id
	}

	partIDs := make(map[int64]int64, len(db.Parts))
	for _, p := range db.Parts {
		if p == nil {
			continue
		}
		in := p.Clone()
		in.PartTypeID = typeIDs[p.PartTypeID]
		if _, ok := typeIDs[p.PartTypeID]; !ok && p.PartTypeID <= entity.MaxDefaultPartTypeID {
			in.PartTypeID = p.PartTypeID // sembrado, aunque el archivo no liste la taxonomía
		}
		in.ProjectID = nil
		if p.ProjectID != nil {
			if id, ok := projectIDs[*p.ProjectID]; ok {
				in.ProjectID = &id
			}
		}
		stored, err := i.upsertPart(ctx, uc, in, rep)
		if err != nil {
			return err
		}
		partIDs[p.PartID] = stored.PartID
	}

	for _, f := range db.StoredFiles {
		if f == nil {
			continue
		}
		partID, ok := partIDs[f.PartID]
		if !ok {
			rep.Skipped++
			continue
		}
		if _, err := i.catalog.GetStoredFileByName(ctx, f.FileName, uc); err == nil {
			rep.Skipped++
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("import stored file %s: %w", f.FileName, err)
		}
		in := f.Clone()
		in.PartID = partID
		if _, err := i.catalog.AddStoredFile(ctx, in, uc); err != nil {
			return fmt.Errorf("import stored file %s: %w", f.FileName, err)
		}
		rep.FilesCreated++
	}
	return nil
}

// importPartTypes resuelve los tipos padres antes que los hijos y devuelve id del archivo → id real.
// Los tipos sembrados conservan su id; un padre ausente del archivo deja al tipo como raíz.
func (i *ImportUseCase) importPartTypes(ctx context.Context, uc *entity.UserContext, types []*entity.PartType, rep *dto.ImportReportDTO) (map[int64]int64, error) {
	ids := make(map[int64]int64, len(types))
	inFile := make(map[int64]bool, len(types))
	var pending []*entity.PartType
	for _, t := range types {
		if t == nil {
			continue
		}
		if t.IsSystemDefault() {
			ids[t.PartTypeID] = t.PartTypeID
			continue
		}
		inFile[t.PartTypeID] = true
		pending = append(pending, t)
	}

	for len(pending) > 0 {
		var next []*entity.PartType
		for _, t := range pending {
			var parent *int64
			if t.ParentPartTypeID != nil {
				pid := *t.ParentPartTypeID
				if mapped, ok := ids[pid]; ok {
					parent = &mapped
				} else if inFile[pid] {
					next = append(next, t)
					continue
				}
			}
			got, err := i.catalog.GetOrCreatePartType(ctx, &entity.PartType{Name: t.Name, ParentPartTypeID: parent}, uc)
			if err != nil {
				return nil, fmt.Errorf("import part type %q: %w", t.Name, err)
			}
			ids[t.PartTypeID] = got.PartTypeID
			rep.PartTypes++
		}
		if len(next) == len(pending) {
			return nil, fmt.Errorf("import part types: %w: la jerarquía del archivo tiene un ciclo", domain.ErrValidation)
		}
		pending = next
	}
	return ids, nil
}

func (i *ImportUseCase) resolveProject(ctx context.Context, uc *entity.UserContext, p *entity.Project, rep *dto.ImportReportDTO) (int64, error) {
	existing, err := i.catalog.GetProjectByName(ctx, p.Name, uc)
	if err == nil {
		return existing.ProjectID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("import project %q: %w", p.Name, err)
	}
	created, err := i.catalog.AddProject(ctx, p, uc)
	if err != nil {
		return 0, fmt.Errorf("import project %q: %w", p.Name, err)
	}
	rep.ProjectsCreated++
	return created.ProjectID, nil
}

// upsertPart actualiza la parte propia con el mismo número; en otro caso crea una nueva.
func (i *ImportUseCase) upsertPart(ctx context.Context, uc *entity.UserContext, in *entity.Part, rep *dto.ImportReportDTO) (*entity.Part, error) {
	if in.PartNumber != "" {
		existing, err := i.catalog.GetPartByNumber(ctx, in.PartNumber, uc)
		switch {
		case err == nil && uc.Owns(existing.UserID):
			in.PartID = existing.PartID
			updated, err := i.catalog.UpdatePart(ctx, in, uc)
			if err != nil {
				return nil, fmt.Errorf("import part %s: %w", in.PartNumber, err)
			}
			rep.PartsUpdated++
			return updated, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("import part %s: %w", in.PartNumber, err)
		}
	}
	created, err := i.catalog.AddPart(ctx, in, uc)
	if err != nil {
		return nil, fmt.Errorf("import part %s: %w", in.PartNumber, err)
	}
	rep.PartsCreated++
	return created, nil
}

// ── CSV ──────────────────────────────────────────────────────────────────────

// csvColumns encabezados reconocidos (sin distinguir mayúsculas ni espacios).
var csvColumns = map[string]func(p *entity.Part, v string) error{
	"partnumber":             func(p *entity.Part, v string) error { p.PartNumber = v; return nil },
	"description":            func(p *entity.Part, v string) error { p.Description = v; return nil },
	"manufacturer":           func(p *entity.Part, v string) error { p.Manufacturer = v; return nil },
	"manufacturerpartnumber": func(p *entity.Part, v string) error { p.ManufacturerPartNumber = v; return nil },
	"digikeypartnumber":      func(p *entity.Part, v string) error { p.DigiKeyPartNumber = v; return nil },
	"mouserpartnumber":       func(p *entity.Part, v string) error { p.MouserPartNumber = v; return nil },
	"arrowpartnumber":        func(p *entity.Part, v string) error { p.ArrowPartNumber = v; return nil },
	"location":               func(p *entity.Part, v string) error { p.Location = v; return nil },
	"binnumber":              func(p *entity.Part, v string) error { p.BinNumber = v; return nil },
	"binnumber2":             func(p *entity.Part, v string) error { p.BinNumber2 = v; return nil },
	"packagetype":            func(p *entity.Part, v string) error { p.PackageType = v; return nil },
	"datasheeturl":           func(p *entity.Part, v string) error { p.DatasheetURL = v; return nil },
	"producturl":             func(p *entity.Part, v string) error { p.ProductURL = v; return nil },
	"imageurl":               func(p *entity.Part, v string) error { p.ImageURL = v; return nil },
	"supplier":               func(p *entity.Part, v string) error { p.LowestCostSupplier = v; return nil },
	"keywords": func(p *entity.Part, v string) error {
		p.Keywords = strings.Split(v, ";")
		return nil
	},
	"quantity": func(p *entity.Part, v string) (err error) {
		if v == "" {
			return nil
		}
		p.Quantity, err = strconv.ParseInt(v, 10, 64)
		return err
	},
	"lowstockthreshold": func(p *entity.Part, v string) (err error) {
		if v == "" {
			return nil
		}
		p.LowStockThreshold, err = strconv.Atoi(v)
		return err
	},
	"cost": func(p *entity.Part, v string) (err error) {
		if v == "" {
			return nil
		}
		p.Cost, err = decimal.NewFromString(v)
		return err
	},
}

// Columnas que se resuelven contra el almacenamiento y no se copian a la parte.
const (
	csvPartType = "parttype"
	csvProject  = "project"
)

func (i *ImportUseCase) importCSV(ctx context.Context, uc *entity.UserContext, r io.Reader, rep *dto.ImportReportDTO) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("import csv: %w: encabezado: %w", domain.ErrValidation, err)
	}
	cols := make([]string, len(header))
	hasNumber := false
	for n, h := range header {
		cols[n] = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
		hasNumber = hasNumber || cols[n] == "partnumber"
	}
	if !hasNumber {
		return fmt.Errorf("import csv: %w: falta la columna PartNumber", domain.ErrValidation)
	}

	typeIDs := map[string]int64{}
	projectIDs := map[string]int64{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("import csv línea %d: %w: %w", line, domain.ErrValidation, err)
		}

		part := entity.NewPart("")
		var typeName, projectName string
		for n, raw := range record {
			if n >= len(cols) {
				break
			}
			v := strings.TrimSpace(raw)
			switch cols[n] {
			case csvPartType:
				typeName = v
				continue
			case csvProject:
				projectName = v
				continue
			}
			set, ok := csvColumns[cols[n]]
			if !ok {
				continue
			}
			if err := set(part, v); err != nil {
				return fmt.Errorf("import csv línea %d columna %s: %w: %w", line, header[n], domain.ErrValidation, err)
			}
		}
		if part.PartNumber == "" {
			rep.Skipped++
			continue
		}

		if typeName != "" {
			key := entity.NameKey(typeName)
			id, ok := typeIDs[key]
			if !ok {
				t, err := i.catalog.GetOrCreatePartType(ctx, &entity.PartType{Name: typeName}, uc)
				if err != nil {
					return fmt.Errorf("import csv línea %d: %w", line, err)
				}
				id = t.PartTypeID
				typeIDs[key] = id
				rep.PartTypes++
			}
			part.PartTypeID = id
		}
		if projectName != "" {
			key := strings.ToLower(projectName)
			id, ok := projectIDs[key]
			if !ok {
				id, err = i.resolveProject(ctx, uc, &entity.Project{Name: projectName}, rep)
				if err != nil {
					return fmt.Errorf("import csv línea %d: %w", line, err)
				}
				projectIDs[key] = id
			}
			part.ProjectID = &id
		}

		if _, err := i.upsertPart(ctx, uc, part, rep); err != nil {
			return fmt.Errorf("import csv línea %d: %w", line, err)
		}
	}
}
