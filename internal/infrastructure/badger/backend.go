package badger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/pkg/config"
	"github.com/jhoicas/partsbin/pkg/logger"
)

const defaultSequenceBandwidth = 100

// Backend envuelve la instancia de BadgerDB y sus secuencias de ids.
type Backend struct {
	db   *badger.DB
	seqs map[string]*badger.Sequence
	log  *logger.Logger
}

// zerologAdapter redirige el log interno de badger al logger de la aplicación.
type zerologAdapter struct {
	log *logger.Logger
}

var _ badger.Logger = (*zerologAdapter)(nil)

func (a *zerologAdapter) Errorf(msg string, items ...any) {
	a.log.Error().Msg(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (a *zerologAdapter) Warningf(msg string, items ...any) {
	a.log.Warn().Msg(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

// Infof badger es muy verboso en info; se degrada a debug.
func (a *zerologAdapter) Infof(msg string, items ...any) {
	a.log.Debug().Msg(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (a *zerologAdapter) Debugf(msg string, items ...any) {
	a.log.Trace().Msg(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

// OpenBackend abre BadgerDB en cfg.Path (lo crea si no existe) o solo en memoria.
func OpenBackend(cfg config.BadgerConfig, log *logger.Logger) (*Backend, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("badger")

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("open badger: %w: %w", domain.ErrStoreUnavailable, err)
		}
		info, err := os.Stat(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w: %w", domain.ErrStoreUnavailable, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("open badger: %w: %s no es un directorio", domain.ErrStoreUnavailable, cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = &zerologAdapter{log: log}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w: %w", domain.ErrStoreUnavailable, err)
	}

	b := &Backend{db: db, seqs: make(map[string]*badger.Sequence), log: log}
	for _, name := range []string{partSeq, projectSeq, partTypeSeq, storedFileSeq} {
		seq, err := db.GetSequence([]byte(name), defaultSequenceBandwidth)
		if err != nil {
			_ = b.Close()
			return nil, translate("open sequence "+name, err)
		}
		b.seqs[name] = seq
	}
	return b, nil
}

// Close libera las secuencias (devuelve los ids no usados) y cierra la base.
func (b *Backend) Close() error {
	var errs []error
	for _, seq := range b.seqs {
		if err := seq.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	b.seqs = nil
	if err := b.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// IsClosed indica si la base ya fue cerrada.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// nextID siguiente id de la secuencia; empieza en 1.
func (b *Backend) nextID(name string) (int64, error) {
	seq, ok := b.seqs[name]
	if !ok {
		return 0, fmt.Errorf("next id %s: %w: backend cerrado", name, domain.ErrStoreUnavailable)
	}
	n, err := seq.Next()
	if err != nil {
		return 0, translate("next id "+name, err)
	}
	return int64(n) + 1, nil
}

// view transacción de solo lectura; todas las lecturas de fn ven el mismo estado.
func (b *Backend) view(op string, fn func(txn *badger.Txn) error) error {
	return translate(op, b.db.View(fn))
}

// update transacción de escritura; el commit falla con ErrConflict si otra
// transacción escribió lo que fn leyó.
func (b *Backend) update(op string, fn func(txn *badger.Txn) error) error {
	return translate(op, b.db.Update(fn))
}

// Codificación de valores: JSON de las entidades del dominio.

func putJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func getJSON[T any](txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	var out T
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &out) }); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &out, nil
}

// scan recorre en orden de llave todos los valores bajo el prefijo.
func scan[T any](txn *badger.Txn, prefix string, fn func(*T) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var v T
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &v) }); err != nil {
			return fmt.Errorf("decode %s: %w", item.Key(), err)
		}
		if err := fn(&v); err != nil {
			return err
		}
	}
	return nil
}

// scanKeys recorre solo las llaves bajo el prefijo (índices sin valor).
func scanKeys(txn *badger.Txn, prefix []byte, fn func(key []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := fn(it.Item().KeyCopy(nil)); err != nil {
			return err
		}
	}
	return nil
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}
