package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
)

func getStoredFile(txn *badger.Txn, id int64) (*entity.StoredFile, error) {
	f, err := getJSON[entity.StoredFile](txn, makeStoredFileKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound("get stored file", "stored file", id)
	}
	return f, err
}

// deleteFilesOfPart borrado en cascada de los archivos de una parte y sus índices.
func deleteFilesOfPart(txn *badger.Txn, partID int64) error {
	prefix := makePartialFilePartKey(partID)
	var keys [][]byte
	if err := scanKeys(txn, prefix, func(key []byte) error {
		keys = append(keys, key)
		return nil
	}); err != nil {
		return err
	}
	for _, key := range keys {
		fileID := idFromKey(string(prefix), key)
		f, err := getStoredFile(txn, fileID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if f != nil {
			if err := txn.Delete(makeFileNameKey(f.FileName)); err != nil {
				return err
			}
			if err := txn.Delete(makeStoredFileKey(fileID)); err != nil {
				return err
			}
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) AddStoredFile(ctx context.Context, file *entity.StoredFile, uc *entity.UserContext) (*entity.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("add stored file: %w", err)
	}
	in, err := entity.PrepareNewStoredFile(file, uc, entity.Now())
	if err != nil {
		return nil, err
	}
	err = p.b.update("add stored file", func(txn *badger.Txn) error {
		if _, err := getVisiblePart(txn, in.PartID, uc); err != nil {
			return fmt.Errorf("part %d: %w", in.PartID, err)
		}
		taken, err := exists(txn, makeFileNameKey(in.FileName))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: el archivo %q ya existe", domain.ErrConflict, in.FileName)
		}
		id, err := p.b.nextID(storedFileSeq)
		if err != nil {
			return err
		}
		in.StoredFileID = id
		if err := putJSON(txn, makeStoredFileKey(id), in); err != nil {
			return err
		}
		if err := txn.Set(makeFileNameKey(in.FileName), encodeID(id)); err != nil {
			return err
		}
		return txn.Set(makeFilePartKey(in.PartID, id), nil)
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (p *Provider) GetStoredFile(ctx context.Context, storedFileID int64, uc *entity.UserContext) (*entity.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get stored file: %w", err)
	}
	var out *entity.StoredFile
	err := p.b.view("get stored file", func(txn *badger.Txn) error {
		f, err := getStoredFile(txn, storedFileID)
		if err != nil {
			return err
		}
		if !uc.CanSee(f.UserID) {
			return notFound("get stored file", "stored file", storedFileID)
		}
		out = f
		return nil
	})
	return out, err
}

func (p *Provider) GetStoredFileByName(ctx context.Context, filename string, uc *entity.UserContext) (*entity.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get stored file by name: %w", err)
	}
	var out *entity.StoredFile
	err := p.b.view("get stored file by name", func(txn *badger.Txn) error {
		item, err := txn.Get(makeFileNameKey(filename))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound("get stored file by name", "file", filename)
		}
		if err != nil {
			return err
		}
		var id int64
		if err := item.Value(func(val []byte) error {
			id = decodeID(val)
			return nil
		}); err != nil {
			return err
		}
		f, err := getStoredFile(txn, id)
		if err != nil {
			return err
		}
		if !uc.CanSee(f.UserID) {
			return notFound("get stored file by name", "file", filename)
		}
		out = f
		return nil
	})
	return out, err
}

func (p *Provider) GetStoredFilesForPart(ctx context.Context, partID int64, fileType *entity.StoredFileType, uc *entity.UserContext) ([]*entity.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get stored files for part: %w", err)
	}
	out := []*entity.StoredFile{}
	err := p.b.view("get stored files for part", func(txn *badger.Txn) error {
		prefix := makePartialFilePartKey(partID)
		return scanKeys(txn, prefix, func(key []byte) error {
			f, err := getStoredFile(txn, idFromKey(string(prefix), key))
			if err != nil {
				return err
			}
			if !uc.CanSee(f.UserID) || (fileType != nil && f.StoredFileType != *fileType) {
				return nil
			}
			out = append(out, f)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Provider) GetStoredFiles(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.StoredFile], error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get stored files: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out *entity.PaginatedResponse[*entity.StoredFile]
	err := p.b.view("get stored files", func(txn *badger.Txn) error {
		files, err := collectVisible(txn, storedFilePrefix, uc, storedFileOwner)
		if err != nil {
			return err
		}
		out = entity.Paginate(files, req)
		return nil
	})
	return out, err
}
