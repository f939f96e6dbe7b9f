package domain

// MaxUploadBytes is the per-image size cap enforced before any request is sent.
const MaxUploadBytes int64 = 20 * 1024 * 1024

// ImageFile is an in-memory image ready for upload.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f ImageFile) Size() int64 {
	return int64(len(f.Data))
}

func (f ImageFile) Empty() bool {
	return len(f.Data) == 0
}

// UploadRequest is the payload of one multipart upload.
type UploadRequest struct {
	DocumentType DocumentType
	Primary      ImageFile
	Secondary    *ImageFile
}
