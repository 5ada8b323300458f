package service

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrUnsupportedEvent is returned by ParseObjectEvent for payloads that match
// none of the known notification shapes.
var ErrUnsupportedEvent = errors.New("unsupported event format")

// ObjectRef names a stored object.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type s3Event struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

type bridgeEvent struct {
	Detail *struct {
		Bucket *struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object *struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"detail"`
}

// gcsNotification is the JSON body of a Cloud Storage Pub/Sub notification.
type gcsNotification struct {
	Kind   string `json:"kind"`
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ParseObjectEvent extracts the object from an object-created notification.
// It accepts S3 style records (the key is URL query-unescaped), event bridge
// detail payloads and Cloud Storage notifications, or a bare {"key": ...}.
func ParseObjectEvent(body []byte) (ObjectRef, error) {
	var records s3Event
	if err := json.Unmarshal(body, &records); err == nil && len(records.Records) > 0 {
		rec := records.Records[0].S3
		key, err := url.QueryUnescape(rec.Object.Key)
		if err != nil {
			return ObjectRef{}, fmt.Errorf("%w: malformed object key: %v", ErrUnsupportedEvent, err)
		}
		return validRef(ObjectRef{Bucket: rec.Bucket.Name, Key: key})
	}

	var bridge bridgeEvent
	if err := json.Unmarshal(body, &bridge); err == nil && bridge.Detail != nil &&
		bridge.Detail.Bucket != nil && bridge.Detail.Object != nil {
		return validRef(ObjectRef{Bucket: bridge.Detail.Bucket.Name, Key: bridge.Detail.Object.Key})
	}

	var gcs gcsNotification
	if err := json.Unmarshal(body, &gcs); err == nil && gcs.Kind == "storage#object" {
		return validRef(ObjectRef{Bucket: gcs.Bucket, Key: gcs.Name})
	}

	var direct ObjectRef
	if err := json.Unmarshal(body, &direct); err == nil && direct.Key != "" {
		return direct, nil
	}
	return ObjectRef{}, ErrUnsupportedEvent
}

// InBucket returns ErrUnsupportedEvent when the event names a bucket other
// than the configured one. A bare key carries no bucket and always passes.
func (r ObjectRef) InBucket(bucket string) error {
	if r.Bucket != "" && r.Bucket != bucket {
		return fmt.Errorf("%w: object is in bucket %q, not %q", ErrUnsupportedEvent, r.Bucket, bucket)
	}
	return nil
}

func validRef(ref ObjectRef) (ObjectRef, error) {
	if ref.Key == "" {
		return ObjectRef{}, fmt.Errorf("%w: missing object key", ErrUnsupportedEvent)
	}
	return ref, nil
}
