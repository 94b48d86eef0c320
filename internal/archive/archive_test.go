package archive

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bilgisen/illustrate/internal/config"
	"github.com/bilgisen/illustrate/internal/utils"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 7, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	url := "https://a.test/rss"

	got := ObjectKey(42, url, at)
	want := "feeds/42/2024/03/08/1709872200-" + utils.ShortHash(url, 12) + ".xml"
	if got != want {
		t.Errorf("ObjectKey() = %q, want %q", got, want)
	}
}

func TestArchive(t *testing.T) {
	fake := &fakePutter{}
	a := newArchiver(fake, "feeds-bucket")
	at := time.Unix(1700000000, 0)

	if err := a.Archive(context.Background(), 3, "https://b.test/feed", []byte("<rss/>"), at); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if *fake.input.Bucket != "feeds-bucket" || !strings.HasPrefix(*fake.input.Key, "feeds/3/") {
		t.Errorf("unexpected input: bucket=%s key=%s", *fake.input.Bucket, *fake.input.Key)
	}
	if fake.body != "<rss/>" {
		t.Errorf("body = %q", fake.body)
	}

	fake.err = errors.New("access denied")
	if err := a.Archive(context.Background(), 3, "https://b.test/feed", nil, at); err == nil {
		t.Error("expected error from failing put")
	}
}

func TestNewFromConfigDisabled(t *testing.T) {
	cfg := config.FromEnv()
	cfg.ArchiveBucket = ""
	a, err := NewFromConfig(context.Background(), cfg)
	if err != nil || a != nil {
		t.Errorf("NewFromConfig() = %v, %v; want nil, nil", a, err)
	}
}
