package translation_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/frahmantamala/school-management/internal/translation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeS3 struct {
	objects map[string]string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

var _ = Describe("Sinks", func() {
	It("should write nested files below the root", func() {
		root := GinkgoT().TempDir()
		sink := translation.NewFileSink(root)

		Expect(sink.Write(context.Background(), "nl/common.json", []byte(`{"save":"Opslaan"}`))).To(Succeed())
		data, err := os.ReadFile(filepath.Join(root, "nl", "common.json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"save":"Opslaan"}`))
		Expect(sink.Location()).To(Equal(root))
	})

	It("should upload objects under the prefix", func() {
		client := &fakeS3{objects: map[string]string{}}
		sink := translation.NewS3Sink(client, "site-assets", "/locales/")

		Expect(sink.Write(context.Background(), "en/common.json", []byte(`{}`))).To(Succeed())
		Expect(client.objects).To(HaveKeyWithValue("site-assets/locales/en/common.json", "{}"))
		Expect(sink.Location()).To(Equal("s3://site-assets/locales"))
	})

	It("should upload at the bucket root without a prefix", func() {
		client := &fakeS3{objects: map[string]string{}}
		sink := translation.NewS3Sink(client, "site-assets", "")

		Expect(sink.Write(context.Background(), translation.SummaryFile, []byte(`{}`))).To(Succeed())
		Expect(client.objects).To(HaveKey("site-assets/" + translation.SummaryFile))
	})

	It("should report upload failures with the object key", func() {
		sink := translation.NewS3Sink(&fakeS3{err: fmt.Errorf("access denied")}, "site-assets", "locales")
		err := sink.Write(context.Background(), "en/common.json", []byte(`{}`))
		Expect(err).To(MatchError(ContainSubstring("s3://site-assets/locales/en/common.json")))
	})

	It("should require a bucket", func() {
		_, err := translation.NewS3SinkFromOptions(context.Background(), translation.S3Options{Region: "eu-west-1"})
		Expect(err).To(HaveOccurred())
	})
})
