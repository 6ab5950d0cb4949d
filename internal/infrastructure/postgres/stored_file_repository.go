package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/partsbin/internal/domain/entity"
)

const storedFileColumns = `stored_file_id, file_name, original_file_name, stored_file_type, part_id,
	file_length, crc32, user_id, date_created_utc`

// StoredFileRepo acceso SQL a los metadatos de archivos.
type StoredFileRepo struct {
	q Querier
}

// NewStoredFileRepository construye el adaptador. Acepta pool o tx (Querier).
func NewStoredFileRepository(q Querier) *StoredFileRepo {
	return &StoredFileRepo{q: q}
}

func scanStoredFile(row pgx.Row) (*entity.StoredFile, error) {
	var (
		f        entity.StoredFile
		fileType int
		crc      int64
	)
	if err := row.Scan(&f.StoredFileID, &f.FileName, &f.OriginalFileName, &fileType, &f.PartID,
		&f.FileLength, &crc, &f.UserID, &f.DateCreatedUTC); err != nil {
		return nil, err
	}
	f.StoredFileType = entity.StoredFileType(fileType)
	f.Crc32 = uint32(crc)
	f.DateCreatedUTC = f.DateCreatedUTC.UTC()
	return &f, nil
}

func (r *StoredFileRepo) list(ctx context.Context, op, sql string, a args) ([]*entity.StoredFile, error) {
	rows, err := r.q.Query(ctx, sql, a...)
	if err != nil {
		return nil, translate(op, err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.StoredFile, error) {
		return scanStoredFile(row)
	})
	if err != nil {
		return nil, translate(op, err)
	}
	return list, nil
}

// Create persiste el archivo; un nombre repetido produce ErrConflict.
func (r *StoredFileRepo) Create(ctx context.Context, f *entity.StoredFile) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO stored_files (file_name, original_file_name, stored_file_type, part_id, file_length, crc32, user_id, date_created_utc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING stored_file_id`,
		f.FileName, f.OriginalFileName, int(f.StoredFileType), f.PartID, f.FileLength, int64(f.Crc32), f.UserID, f.DateCreatedUTC,
	).Scan(&id)
	if err != nil {
		return 0, translate("insert stored file", err)
	}
	return id, nil
}

// GetVisible por id, solo si el llamador puede verlo.
func (r *StoredFileRepo) GetVisible(ctx context.Context, id int64, uc *entity.UserContext) (*entity.StoredFile, error) {
	a := args{id}
	f, err := scanStoredFile(r.q.QueryRow(ctx,
		`SELECT `+storedFileColumns+` FROM stored_files WHERE stored_file_id = $1 AND `+visibleTo("user_id", uc, &a), a...))
	if err != nil {
		return nil, translate("get stored file", err)
	}
	return f, nil
}

// GetByName por nombre almacenado (único), solo si el llamador puede verlo.
func (r *StoredFileRepo) GetByName(ctx context.Context, name string, uc *entity.UserContext) (*entity.StoredFile, error) {
	a := args{name}
	f, err := scanStoredFile(r.q.QueryRow(ctx,
		`SELECT `+storedFileColumns+` FROM stored_files WHERE file_name = $1 AND `+visibleTo("user_id", uc, &a), a...))
	if err != nil {
		return nil, translate("get stored file by name", err)
	}
	return f, nil
}

// ForPart archivos visibles de la parte; fileType nil = todos.
func (r *StoredFileRepo) ForPart(ctx context.Context, partID int64, fileType *entity.StoredFileType, uc *entity.UserContext) ([]*entity.StoredFile, error) {
	a := args{partID}
	where := `part_id = $1 AND ` + visibleTo("user_id", uc, &a)
	if fileType != nil {
		where += ` AND stored_file_type = ` + a.add(int(*fileType))
	}
	return r.list(ctx, "stored files for part",
		`SELECT `+storedFileColumns+` FROM stored_files WHERE `+where+` ORDER BY stored_file_id`, a)
}

// List página de archivos visibles en orden de id, más el total.
func (r *StoredFileRepo) List(ctx context.Context, uc *entity.UserContext, limit, offset int) ([]*entity.StoredFile, int, error) {
	var a args
	where := visibleTo("user_id", uc, &a)
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stored_files WHERE `+where, a...).Scan(&total); err != nil {
		return nil, 0, translate("count stored files", err)
	}
	list, err := r.list(ctx, "list stored files", `SELECT `+storedFileColumns+` FROM stored_files WHERE `+where+
		` ORDER BY stored_file_id LIMIT `+a.add(limit)+` OFFSET `+a.add(offset), a)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// All archivos visibles (instantánea).
func (r *StoredFileRepo) All(ctx context.Context, uc *entity.UserContext) ([]*entity.StoredFile, error) {
	var a args
	return r.list(ctx, "list stored files",
		`SELECT `+storedFileColumns+` FROM stored_files WHERE `+visibleTo("user_id", uc, &a)+` ORDER BY stored_file_id`, a)
}
