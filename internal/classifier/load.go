package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ErrNoModel is returned when no model document could be found.
var ErrNoModel = errors.New("no model found")

// DefaultModelName is the file name models are published under.
const DefaultModelName = "malware_detector.json"

// DefaultPaths are the locations searched by Find when no explicit path is
// configured, relative to the working directory.
var DefaultPaths = []string{
	"models/" + DefaultModelName,
	"../models/" + DefaultModelName,
	"backend/models/" + DefaultModelName,
}

// Decode reads and validates a forest from r.
func Decode(r io.Reader) (*Forest, error) {
	var f Forest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads a forest from the file at path. A missing file returns an
// error wrapping ErrNoModel.
func LoadFile(path string) (*Forest, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoModel, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	forest, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return forest, nil
}

// Find loads the first of paths that exists. If none exist the error wraps
// ErrNoModel. A path that exists but holds an invalid model is an error; later
// candidates are not tried.
func Find(paths ...string) (*Forest, error) {
	for _, p := range paths {
		forest, err := LoadFile(p)
		if errors.Is(err, ErrNoModel) {
			continue
		}
		return forest, err
	}
	return nil, fmt.Errorf("%w: searched %v", ErrNoModel, paths)
}

// LoadBlob reads a forest stored under key in bkt.
func LoadBlob(ctx context.Context, bkt *blob.Bucket, key string) (*Forest, error) {
	r, err := bkt.NewReader(ctx, key, nil)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, fmt.Errorf("%w: %s", ErrNoModel, key)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	forest, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return forest, nil
}

// LoadFromBucket opens the bucket at bucketURL and reads the forest stored
// under key.
func LoadFromBucket(ctx context.Context, bucketURL, key string) (*Forest, error) {
	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	defer bkt.Close()
	return LoadBlob(ctx, bkt, key)
}

// Load resolves the configured model source. A non-empty bucketURL reads path
// (or DefaultModelName) from that bucket, otherwise a non-empty path is read
// from disk, otherwise DefaultPaths are searched.
//
// Load returns a nil Classifier, never a typed nil, when the model cannot be
// loaded, so its result can be passed straight to Select.
func Load(ctx context.Context, bucketURL, path string) (Classifier, error) {
	var forest *Forest
	var err error
	switch {
	case bucketURL != "":
		key := path
		if key == "" {
			key = DefaultModelName
		}
		forest, err = LoadFromBucket(ctx, bucketURL, key)
	case path != "":
		forest, err = LoadFile(path)
	default:
		forest, err = Find(DefaultPaths...)
	}
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Loaded model",
		"model_type", forest.ModelType,
		"trees", len(forest.Trees))
	return forest, nil
}
