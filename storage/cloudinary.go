package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/asset"
	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/config"
	"github.com/shamsucomsoft/onv-ncne-api/logger"
)

// uploadAPI is the part of the Cloudinary upload client the store needs.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// urlSigner builds a signed delivery URL for an authenticated asset.
type urlSigner func(a cloudAsset) (string, error)

// CloudinaryStore keeps objects in Cloudinary. Visibility selects a top-level
// folder and the delivery type: public objects use plain uploads, private
// ones are authenticated assets only reachable through signed URLs. Metadata
// is stored as a raw sidecar asset next to the object.
type CloudinaryStore struct {
	api           uploadAPI
	sign          urlSigner
	deliveryBase  string
	publicFolder  string
	privateFolder string
	httpClient    *http.Client
}

func NewCloudinary(cfg config.StorageConfig) (*CloudinaryStore, error) {
	var (
		cld       *cloudinary.Cloudinary
		cloudName string
		err       error
	)
	if cfg.CloudinaryURL != "" {
		cld, err = cloudinary.NewFromURL(cfg.CloudinaryURL)
		if u, perr := url.Parse(cfg.CloudinaryURL); perr == nil {
			cloudName = u.Host
		}
	} else {
		cld, err = cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
		cloudName = cfg.CloudName
	}
	if err != nil {
		return nil, fmt.Errorf("cloudinary initialization failed: %w", err)
	}
	if cloudName == "" {
		return nil, errors.New("cloudinary cloud name is empty")
	}
	logger.L().Info("☁️  Cloudinary storage initialized", zap.String("cloud", cloudName))

	return newCloudinaryStore(&cld.Upload, signedURLs(cld), "https://res.cloudinary.com/"+cloudName, cfg.PublicFolder, cfg.PrivateFolder), nil
}

// signedURLs signs delivery URLs with the account secret through the SDK's
// asset builder.
func signedURLs(cld *cloudinary.Cloudinary) urlSigner {
	conf := cld.Config
	conf.URL.SignURL = true
	conf.URL.Analytics = false
	return func(a cloudAsset) (string, error) {
		var (
			built *asset.Asset
			err   error
		)
		id := a.publicID
		if a.format != "" {
			id += "." + a.format
		}
		switch a.resourceType {
		case string(api.Image):
			built, err = asset.Image(id, &conf)
		case api.Video:
			built, err = asset.Video(id, &conf)
		default:
			built, err = asset.File(id, &conf)
		}
		if err != nil {
			return "", err
		}
		built.DeliveryType = api.DeliveryType(a.deliveryType)
		return built.String()
	}
}

func newCloudinaryStore(uploads uploadAPI, sign urlSigner, deliveryBase, publicFolder, privateFolder string) *CloudinaryStore {
	return &CloudinaryStore{
		api:           uploads,
		sign:          sign,
		deliveryBase:  strings.TrimSuffix(deliveryBase, "/"),
		publicFolder:  strings.Trim(publicFolder, "/"),
		privateFolder: strings.Trim(privateFolder, "/"),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *CloudinaryStore) Location() string { return config.StorageCloud }

// cloudAsset is how a key is addressed in Cloudinary.
type cloudAsset struct {
	publicID     string
	resourceType string
	deliveryType string
	format       string
}

var (
	imageExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "bmp": true, "heic": true, "svg": true, "tiff": true}
	videoExts = map[string]bool{"mp4": true, "mov": true, "webm": true, "mp3": true, "wav": true, "m4a": true, "ogg": true}
)

// resolve maps a key to its Cloudinary public ID. Image and video IDs drop
// the extension, raw IDs keep it.
func (s *CloudinaryStore) resolve(key string, vis Visibility) (cloudAsset, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return cloudAsset{}, err
	}
	folder, delivery := s.privateFolder, api.Authenticated
	if vis == Public {
		folder, delivery = s.publicFolder, string(api.Upload)
	}
	full := cleaned
	if folder != "" {
		full = folder + "/" + cleaned
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(cleaned), "."))
	switch {
	case imageExts[ext]:
		return cloudAsset{publicID: strings.TrimSuffix(full, path.Ext(full)), resourceType: string(api.Image), deliveryType: delivery, format: ext}, nil
	case videoExts[ext]:
		return cloudAsset{publicID: strings.TrimSuffix(full, path.Ext(full)), resourceType: api.Video, deliveryType: delivery, format: ext}, nil
	default:
		return cloudAsset{publicID: full, resourceType: api.File, deliveryType: delivery}, nil
	}
}

// publicURL is the unsigned delivery URL of an upload-type asset.
func (s *CloudinaryStore) publicURL(a cloudAsset) string {
	u := fmt.Sprintf("%s/%s/%s/%s", s.deliveryBase, a.resourceType, api.Upload, a.publicID)
	if a.format != "" {
		u += "." + a.format
	}
	return u
}

// fetchURL is where the store itself reads an asset from. Authenticated
// assets need a signature.
func (s *CloudinaryStore) fetchURL(a cloudAsset) (string, error) {
	if a.deliveryType == string(api.Upload) {
		return s.publicURL(a), nil
	}
	if s.sign == nil {
		return "", errors.New("no url signer configured for private assets")
	}
	return s.sign(a)
}

func (s *CloudinaryStore) sidecarAsset(a cloudAsset) cloudAsset {
	id := a.publicID
	if a.format != "" {
		id += "." + a.format
	}
	return cloudAsset{publicID: id + metadataSuffix, resourceType: api.File, deliveryType: a.deliveryType}
}

func (s *CloudinaryStore) upload(ctx context.Context, a cloudAsset, data []byte) error {
	overwrite := true
	unique := false
	res, err := s.api.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:       a.publicID,
		ResourceType:   a.resourceType,
		Type:           api.DeliveryType(a.deliveryType),
		Overwrite:      &overwrite,
		UniqueFilename: &unique,
	})
	if err != nil {
		return err
	}
	if res != nil && res.Error.Message != "" {
		return errors.New(res.Error.Message)
	}
	return nil
}

func (s *CloudinaryStore) Save(ctx context.Context, key, contentType string, data []byte, metadata map[string]string, vis Visibility) error {
	a, err := s.resolve(key, vis)
	if err != nil {
		return err
	}
	if err := s.upload(ctx, a, data); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	meta, err := json.Marshal(newSidecar(contentType, metadata))
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := s.upload(ctx, s.sidecarAsset(a), meta); err != nil {
		return fmt.Errorf("upload metadata for %s: %w", key, err)
	}
	logger.L().Debug("📸 Uploaded to Cloudinary", zap.String("public_id", a.publicID))
	return nil
}

func (s *CloudinaryStore) fetch(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return s.httpClient.Do(req)
}

func (s *CloudinaryStore) download(ctx context.Context, a cloudAsset) ([]byte, string, error) {
	target, err := s.fetchURL(a)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.fetch(ctx, http.MethodGet, target)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("cloudinary delivery returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	return data, resp.Header.Get("Content-Type"), err
}

func (s *CloudinaryStore) Get(ctx context.Context, key string, vis Visibility) ([]byte, error) {
	a, err := s.resolve(key, vis)
	if err != nil {
		return nil, err
	}
	data, _, err := s.download(ctx, a)
	return data, err
}

func (s *CloudinaryStore) GetWithMetadata(ctx context.Context, key string, vis Visibility) (*Object, error) {
	a, err := s.resolve(key, vis)
	if err != nil {
		return nil, err
	}
	data, contentType, err := s.download(ctx, a)
	if err != nil {
		return nil, err
	}
	obj := &Object{Data: data, ContentType: contentType, Metadata: map[string]string{}}

	raw, _, err := s.download(ctx, s.sidecarAsset(a))
	if err != nil {
		logger.L().Warn("⚠️  No metadata asset found", zap.String("key", key), zap.Error(err))
		return obj, nil
	}
	var sc sidecar
	if err := json.Unmarshal(raw, &sc); err == nil {
		ct, meta := sc.split()
		if ct != "" {
			obj.ContentType = ct
		}
		obj.Metadata = meta
	}
	return obj, nil
}

// Delete destroys the object and its sidecar. Already missing assets are not an error.
func (s *CloudinaryStore) Delete(ctx context.Context, key string, vis Visibility) error {
	a, err := s.resolve(key, vis)
	if err != nil {
		return err
	}
	for _, target := range []cloudAsset{a, s.sidecarAsset(a)} {
		res, err := s.api.Destroy(ctx, uploader.DestroyParams{
			PublicID:     target.publicID,
			ResourceType: target.resourceType,
			Type:         target.deliveryType,
		})
		if err != nil {
			return fmt.Errorf("destroy %s: %w", target.publicID, err)
		}
		if res != nil && res.Error.Message != "" {
			return fmt.Errorf("destroy %s: %s", target.publicID, res.Error.Message)
		}
	}
	return nil
}

func (s *CloudinaryStore) Exists(ctx context.Context, key string, vis Visibility) (bool, error) {
	a, err := s.resolve(key, vis)
	if err != nil {
		return false, err
	}
	target, err := s.fetchURL(a)
	if err != nil {
		return false, err
	}
	resp, err := s.fetch(ctx, http.MethodHead, target)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("cloudinary delivery returned %s", resp.Status)
	}
}

// PublicURL is the delivery URL of a key in the public folder.
func (s *CloudinaryStore) PublicURL(key string) string {
	a, err := s.resolve(key, Public)
	if err != nil {
		return ""
	}
	return s.publicURL(a)
}
