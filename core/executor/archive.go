package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"schema-manager/core/database"
	"schema-manager/core/storage"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ArchivedScript describes one stored script.
type ArchivedScript struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Archive stores executed scripts in object storage, one object per script,
// under <prefix>/<database>/<timestamp>-<id>.sql.
type Archive struct {
	client storage.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewArchive creates an archive writing to bucket under prefix.
func NewArchive(client storage.Client, bucket, prefix string) *Archive {
	return &Archive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

// Store uploads the script and returns the object key.
func (a *Archive) Store(ctx context.Context, identity database.Identity, script []string) (string, error) {
	key := fmt.Sprintf("%s%s-%s.sql", a.databasePrefix(identity), a.now().UTC().Format("20060102T150405.000Z"), uuid.NewString())

	body := []byte(strings.Join(script, ";\n") + ";\n")
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/sql",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive script: %w", err)
	}
	return key, nil
}

// List returns the archived scripts, oldest first. A zero identity lists every database.
func (a *Archive) List(ctx context.Context, identity database.Identity) ([]ArchivedScript, error) {
	prefix := a.databasePrefix(identity)
	if identity.IsZero() {
		prefix = a.rootPrefix()
	}

	var scripts []ArchivedScript
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list scripts: %w", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, ".sql") {
			continue
		}
		scripts = append(scripts, ArchivedScript{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Key < scripts[j].Key
	})
	return scripts, nil
}

// Fetch returns the text of an archived script.
func (a *Archive) Fetch(ctx context.Context, key string) (string, error) {
	reader, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to fetch script %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read script %s: %w", key, err)
	}
	return string(data), nil
}

func (a *Archive) rootPrefix() string {
	if a.prefix == "" {
		return ""
	}
	return a.prefix + "/"
}

var keyReplacer = strings.NewReplacer("/", "_", ":", "_", "@", "_", "?", "_", "&", "_", "=", "_", " ", "_")

func (a *Archive) databasePrefix(identity database.Identity) string {
	return a.rootPrefix() + keyReplacer.Replace(identity.String()) + "/"
}

// ArchivingExecutor stores every successfully executed script. Archive
// failures are logged and never fail the execution.
type ArchivingExecutor struct {
	next     Executor
	archive  *Archive
	identity database.Identity
	logger   *zap.Logger
}

// NewArchivingExecutor wraps next so scripts run against identity are archived.
func NewArchivingExecutor(next Executor, archive *Archive, identity database.Identity, logger *zap.Logger) *ArchivingExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchivingExecutor{next: next, archive: archive, identity: identity, logger: logger}
}

// Execute runs the script and archives it on success.
func (e *ArchivingExecutor) Execute(ctx context.Context, script []string) error {
	if err := e.next.Execute(ctx, script); err != nil {
		return err
	}
	if len(script) == 0 {
		return nil
	}

	key, err := e.archive.Store(ctx, e.identity, script)
	if err != nil {
		e.logger.Warn("Script executed but not archived", zap.Error(err))
		return nil
	}
	e.logger.Debug("Script archived", zap.String("key", key))
	return nil
}
