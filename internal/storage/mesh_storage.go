package storage

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/voxel-remesher/internal/logging"
	"github.com/annel0/voxel-remesher/internal/vec"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

// ErrNotReady возвращается после Close
var ErrNotReady = errors.New("хранилище не готово")

var meshPrefix = []byte("mesh:")

// Options - параметры хранилища сеток
type Options struct {
	Path             string // Каталог данных; игнорируется при InMemory
	InMemory         bool
	CompressionLevel int // 1 (fastest) .. 4 (best)
}

// MeshStorage хранит построенные сетки в BadgerDB. Значения - protobuf
// wire-формат, сжатый zstd.
type MeshStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *logging.Logger
}

// NewMeshStorage открывает (или создаёт) хранилище сеток
func NewMeshStorage(o Options) (*MeshStorage, error) {
	logger := logging.GetStorageLogger()

	var opts badger.Options
	dbPath := ""
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dbPath = filepath.Join(o.Path, "meshes")
		opts = badger.DefaultOptions(dbPath)
	}
	opts.Logger = &badgerLogger{l: logger}

	level := zstd.EncoderLevel(o.CompressionLevel)
	if level < zstd.SpeedFastest || level > zstd.SpeedBestCompression {
		level = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		encoder.Close()
		decoder.Close()
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	logger.Info("Хранилище сеток открыто (%s, уровень сжатия %s)", storageName(dbPath), level)

	return &MeshStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: encoder,
		decoder: decoder,
		logger:  logger,
	}, nil
}

func storageName(path string) string {
	if path == "" {
		return "в памяти"
	}
	return path
}

// Close закрывает хранилище данных
func (ms *MeshStorage) Close() error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if !ms.isReady {
		return nil
	}

	ms.isReady = false
	ms.encoder.Close()
	ms.decoder.Close()
	return ms.db.Close()
}

func meshKey(coords vec.Vec3) []byte {
	return []byte(fmt.Sprintf("mesh:%d:%d:%d", coords.X, coords.Y, coords.Z))
}

func parseMeshKey(key []byte) (vec.Vec3, error) {
	var c vec.Vec3
	if _, err := fmt.Sscanf(string(key), "mesh:%d:%d:%d", &c.X, &c.Y, &c.Z); err != nil {
		return vec.Vec3{}, fmt.Errorf("%w: ключ %q", ErrCorrupt, key)
	}
	return c, nil
}

// SaveMesh сохраняет запись, заменяя предыдущую для тех же координат
func (ms *MeshStorage) SaveMesh(rec *MeshRecord) error {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if !ms.isReady {
		return ErrNotReady
	}

	data := ms.encoder.EncodeAll(encodeRecord(rec), nil)

	err := ms.db.Update(func(txn *badger.Txn) error {
		return txn.Set(meshKey(rec.Coords), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	ms.logger.Debug("Сетка %s сохранена: ревизия %d, %d квадов, %d байт",
		rec.Coords, rec.Revision, len(rec.Quads), len(data))
	return nil
}

// LoadMesh загружает запись. Если её нет, возвращает nil, nil.
func (ms *MeshStorage) LoadMesh(coords vec.Vec3) (*MeshRecord, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if !ms.isReady {
		return nil, ErrNotReady
	}

	var data []byte
	err := ms.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(meshKey(coords))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	return ms.decode(data)
}

func (ms *MeshStorage) decode(data []byte) (*MeshRecord, error) {
	raw, err := ms.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
	}
	return decodeRecord(raw)
}

// DeleteMesh удаляет запись; отсутствие записи не ошибка
func (ms *MeshStorage) DeleteMesh(coords vec.Vec3) error {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if !ms.isReady {
		return ErrNotReady
	}

	err := ms.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(meshKey(coords))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// ListMeshes возвращает координаты всех сохранённых сеток в порядке ключей
func (ms *MeshStorage) ListMeshes() ([]vec.Vec3, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if !ms.isReady {
		return nil, ErrNotReady
	}

	var coords []vec.Vec3
	err := ms.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = meshPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(meshPrefix); it.Next() {
			key := it.Item().Key()
			if !bytes.HasPrefix(key, meshPrefix) {
				continue
			}
			c, err := parseMeshKey(key)
			if err != nil {
				return err
			}
			coords = append(coords, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return coords, nil
}

// badgerLogger направляет сообщения BadgerDB в логгер хранилища
type badgerLogger struct {
	l *logging.Logger
}

func (b *badgerLogger) Errorf(format string, args ...interface{})   { b.l.Error("badger: "+format, args...) }
func (b *badgerLogger) Warningf(format string, args ...interface{}) { b.l.Warn("badger: "+format, args...) }
func (b *badgerLogger) Infof(format string, args ...interface{})    { b.l.Debug("badger: "+format, args...) }
func (b *badgerLogger) Debugf(format string, args ...interface{})   { b.l.Trace("badger: "+format, args...) }
