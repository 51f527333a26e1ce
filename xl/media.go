package xl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MediaInfo is a picture blob stored once under xl/media.
type MediaInfo struct {
	Name string // hashed blob + extension
	Blob []byte
	IId  int
	RId  string
}

// BlobHash names a media blob by its content.
func BlobHash(blob []byte) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, blob)
}

var imageTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// addPicture registers the blob of a picture cell and returns its media
// record; identical blobs are stored once.
func (w *Writer) addPicture(p *PictureInfo) (*MediaInfo, error) {
	if p == nil {
		return nil, errors.New("missing picture data")
	}
	if len(p.Blob) == 0 {
		return nil, errors.New("empty picture data")
	}
	ext := strings.TrimPrefix(strings.ToLower(p.Extension), ".")
	if ext == "jpg" {
		ext = "jpeg"
	}
	ctype, ok := imageTypes[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported image extension %q", p.Extension)
	}
	w.defaults[ext] = ctype

	n := strings.ReplaceAll(BlobHash(p.Blob).String(), "-", "") + "." + ext
	if info, ok := w.mediaMap[n]; ok {
		return info, nil
	}
	info := &MediaInfo{
		Name: n,
		Blob: p.Blob,
		IId:  len(w.media),
		RId:  w.richDataRels.add(relImage, "../media/"+n),
	}
	w.mediaMap[n] = info
	w.media = append(w.media, info)
	return info, nil
}

func (w *Writer) writeMedia() error {
	for _, m := range w.media {
		if err := w.out.WriteBlob("xl/media/"+m.Name, m.Blob); err != nil {
			return err
		}
	}
	return nil
}
