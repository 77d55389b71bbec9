package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/GoArmGo/AppStore/internal/domain"
)

// ErrNoDocument возвращается носителем, если документ хранилища еще не создан
var ErrNoDocument = errors.New("document does not exist")

// ErrDocumentExists возвращается Create, если документ уже создан кем-то другим
var ErrDocumentExists = errors.New("document already exists")

// RecordMedium определяет долговременный носитель для документа хранилища записей.
// Носитель ничего не знает о структуре документа и хранит его как массив байт.
type RecordMedium interface {
	// Read возвращает текущее содержимое документа или ErrNoDocument
	Read(ctx context.Context) ([]byte, error)

	// Create атомарно создает документ, если его нет. Если документ уже есть — ErrDocumentExists
	Create(ctx context.Context, data []byte) error

	// Write атомарно заменяет документ целиком
	Write(ctx context.Context, data []byte) error

	// WriteBackup сохраняет независимый снимок и возвращает его идентификатор (путь, id)
	WriteBackup(ctx context.Context, data []byte) (string, error)
}

// BackupHandle описывает созданную резервную копию
type BackupHandle struct {
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordStore — хранилище записей с транзакциями под глобальной защитой.
// Все чтения и изменения коллекций users и apps идут только через него.
type RecordStore interface {
	// View выполняет fn над согласованным снимком; изменения не сохраняются
	View(ctx context.Context, fn func(ctx context.Context, db *domain.Database) error) error

	// Update выполняет чтение-изменение-запись; документ сохраняется, только если fn вернула true
	Update(ctx context.Context, fn func(ctx context.Context, db *domain.Database) (bool, error)) error

	// Backup делает снимок текущего состояния
	Backup(ctx context.Context) (BackupHandle, error)

	// BackupSnapshot сохраняет снимок, уже полученный внутри транзакции
	BackupSnapshot(ctx context.Context, db *domain.Database) (BackupHandle, error)
}

// BlobKind определяет вид загружаемого файла
type BlobKind string

const (
	BlobKindApp   BlobKind = "app"
	BlobKindImage BlobKind = "image"
)

// StoredBlob описывает загруженный файл
type StoredBlob struct {
	URL          string
	Key          string
	OriginalName string
	Size         int64
}

// BlobStore определяет интерфейс файлового хранилища (диск, AWS S3, MinIO).
// Хранилище только добавляет файлы и никогда не перезаписывает существующие.
type BlobStore interface {
	// Store сохраняет поток, проверяя допустимый тип и размер, и возвращает публичный URL
	Store(ctx context.Context, kind BlobKind, originalName, contentType string, r io.Reader) (*StoredBlob, error)
}
