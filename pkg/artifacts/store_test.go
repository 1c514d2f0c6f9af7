package artifacts_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mudler/recap/core/schema"
	"github.com/mudler/recap/pkg/artifacts"
)

var _ = Describe("Store", func() {
	var (
		dir   string
		store *artifacts.Store
		input schema.MediaInput
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		var err error
		store, err = artifacts.NewStore(dir)
		Expect(err).ToNot(HaveOccurred())
		input = schema.MediaInput{Path: "/recordings/standup.mp3"}
	})

	It("names artifact files from the input base name and kind", func() {
		path := store.Path(input, schema.ArtifactSummary)
		Expect(filepath.Base(path)).To(Equal("standup.summary.txt"))
	})

	Context("when no artifact exists", func() {
		It("reports absence without an error", func() {
			content, ok, err := store.Load(input, schema.ArtifactTranscription)
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(content).To(BeEmpty())
			Expect(store.Has(input, schema.ArtifactTranscription)).To(BeFalse())
		})
	})

	Context("after Save", func() {
		BeforeEach(func() {
			_, err := store.Save(input, schema.ArtifactTranscription, "hello from the meeting")
			Expect(err).ToNot(HaveOccurred())
		})

		It("is visible to Has and Load", func() {
			Expect(store.Has(input, schema.ArtifactTranscription)).To(BeTrue())
			content, ok, err := store.Load(input, schema.ArtifactTranscription)
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(content).To(Equal("hello from the meeting"))
		})

		It("leaves no temp files behind", func() {
			entries, err := os.ReadDir(dir)
			Expect(err).ToNot(HaveOccurred())
			for _, e := range entries {
				Expect(strings.HasPrefix(e.Name(), ".")).To(BeFalse(), "leftover temp file %s", e.Name())
			}
		})

		It("keeps kinds independent", func() {
			Expect(store.Has(input, schema.ArtifactSummary)).To(BeFalse())
		})

		It("fully overwrites on a re-save", func() {
			_, err := store.Save(input, schema.ArtifactTranscription, "second version")
			Expect(err).ToNot(HaveOccurred())
			content, _, err := store.Load(input, schema.ArtifactTranscription)
			Expect(err).ToNot(HaveOccurred())
			Expect(content).To(Equal("second version"))
		})
	})

	It("returns the written artifact", func() {
		artifact, err := store.Save(input, schema.ArtifactActionItems, "1. ship it")
		Expect(err).ToNot(HaveOccurred())
		Expect(artifact.Kind).To(Equal(schema.ArtifactActionItems))
		Expect(artifact.Input).To(Equal("standup"))
		Expect(artifact.Content).To(Equal("1. ship it"))
		Expect(artifact.Path).To(BeARegularFile())
	})
})
