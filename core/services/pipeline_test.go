package services_test

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sashabaranov/go-openai"

	"github.com/mudler/recap/core/config"
	"github.com/mudler/recap/core/schema"
	"github.com/mudler/recap/core/services"
	"github.com/mudler/recap/pkg/artifacts"
	"github.com/mudler/recap/pkg/cost"
	"github.com/mudler/recap/pkg/transcriber"
)

// fakeCapability stands in for the external API, counting every call.
type fakeCapability struct {
	transcribeCalls int
	transcribeErrs  []error // consumed per call, nil means success
	transcript      string

	completeCalls   int
	completePrompts []string
	completeErr     error
}

func (f *fakeCapability) Transcribe(_ context.Context, path, _ string) (string, error) {
	f.transcribeCalls++
	if len(f.transcribeErrs) > 0 {
		err := f.transcribeErrs[0]
		f.transcribeErrs = f.transcribeErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.transcript, nil
}

func (f *fakeCapability) Complete(_ context.Context, system, prompt string) (string, schema.Usage, error) {
	f.completeCalls++
	f.completePrompts = append(f.completePrompts, system+"\n"+prompt)
	usage := schema.Usage{Model: "gpt-4o-mini", PromptTokens: 100, CompletionTokens: 50}
	if f.completeErr != nil {
		return "", schema.Usage{Model: "gpt-4o-mini"}, f.completeErr
	}
	switch {
	case strings.Contains(system, "translator"):
		return "translated transcript", usage, nil
	case strings.Contains(system, "summarizes"):
		return "a short summary", usage, nil
	default:
		return "some items", usage, nil
	}
}

// writeWav drops a one-second PCM WAV into dir, small enough to fit a
// single request under the default limits.
func writeWav(dir, name string) string {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	Expect(err).ToNot(HaveOccurred())
	defer f.Close()

	const sampleRate = 16000
	const numSamples = sampleRate
	dataSize := uint32(numSamples * 2)

	type wavHeader struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}
	hdr := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	Expect(binary.Write(f, binary.LittleEndian, &hdr)).To(Succeed())
	for i := 0; i < numSamples; i++ {
		Expect(binary.Write(f, binary.LittleEndian, int16(i%512))).To(Succeed())
	}
	return path
}

var _ = Describe("Pipeline", func() {
	var (
		workDir   string
		outputDir string
		inputPath string
		client    *fakeCapability
		store     *artifacts.Store
	)

	newPipeline := func(opts ...config.AppOption) *services.Pipeline {
		base := []config.AppOption{
			config.WithOutputDir(outputDir),
			config.WithTempDir(workDir),
		}
		cfg := config.NewApplicationConfig(append(base, opts...)...)
		return services.NewPipeline(cfg, store, client)
	}

	BeforeEach(func() {
		workDir = GinkgoT().TempDir()
		outputDir = filepath.Join(workDir, "output")
		inputPath = writeWav(workDir, "standup.wav")
		client = &fakeCapability{transcript: "hello team this is the meeting"}
		var err error
		store, err = artifacts.NewStore(outputDir)
		Expect(err).ToNot(HaveOccurred())
	})

	Context("on a cache miss", func() {
		It("produces transcription, summary and action items", func() {
			res, err := newPipeline().Run(context.Background(), inputPath)
			Expect(err).ToNot(HaveOccurred())

			Expect(res.States[schema.ArtifactTranscription]).To(Equal(services.StageDone))
			Expect(res.States[schema.ArtifactSummary]).To(Equal(services.StageDone))
			Expect(res.States[schema.ArtifactActionItems]).To(Equal(services.StageDone))

			Expect(filepath.Join(outputDir, "standup.transcription.txt")).To(BeARegularFile())
			Expect(filepath.Join(outputDir, "standup.summary.txt")).To(BeARegularFile())
			Expect(filepath.Join(outputDir, "standup.action_items.txt")).To(BeARegularFile())

			Expect(client.transcribeCalls).To(BeNumerically(">=", 1))
			Expect(client.completeCalls).To(Equal(2))
		})

		It("accounts the cost of every external call", func() {
			res, err := newPipeline().Run(context.Background(), inputPath)
			Expect(err).ToNot(HaveOccurred())

			// one transcription chunk plus two completions
			Expect(res.Cost.Calls()).To(Equal(3))

			audio, aerr := cost.EstimateAudio("whisper-1", res.Input.Duration)
			Expect(aerr).ToNot(HaveOccurred())
			chat, cerr := cost.Estimate("gpt-4o-mini", 100, 50)
			Expect(cerr).ToNot(HaveOccurred())
			Expect(res.Cost.Total()).To(BeNumerically("~", audio+2*chat, 1e-9))
		})
	})

	Context("on a second run over an unchanged input", func() {
		It("performs zero external calls and returns identical content", func() {
			_, err := newPipeline().Run(context.Background(), inputPath)
			Expect(err).ToNot(HaveOccurred())
			first, err := os.ReadFile(filepath.Join(outputDir, "standup.summary.txt"))
			Expect(err).ToNot(HaveOccurred())

			transcribeCalls, completeCalls := client.transcribeCalls, client.completeCalls

			res, err := newPipeline().Run(context.Background(), inputPath)
			Expect(err).ToNot(HaveOccurred())
			Expect(client.transcribeCalls).To(Equal(transcribeCalls))
			Expect(client.completeCalls).To(Equal(completeCalls))
			Expect(res.Cost.Calls()).To(BeZero())
			Expect(res.CacheHits[schema.ArtifactTranscription]).To(BeTrue())

			second, err := os.ReadFile(filepath.Join(outputDir, "standup.summary.txt"))
			Expect(err).ToNot(HaveOccurred())
			Expect(second).To(Equal(first))
		})
	})

	Context("with translation disabled", func() {
		It("feeds the transcription text to summary and action items", func() {
			_, err := newPipeline().Run(context.Background(), inputPath)
			Expect(err).ToNot(HaveOccurred())

			for _, prompt := range client.completePrompts {
				Expect(prompt).ToNot(ContainSubstring("translator"))
				Expect(prompt).To(ContainSubstring(client.transcript))
			}
		})
	})

	Context("with translation enabled", func() {
		It("feeds the translated text to summary and action items", func() {
			res, err := newPipeline(config.WithTranslation("en")).Run(context.Background(), inputPath)
			Expect(err).ToNot(HaveOccurred())

			Expect(res.States[schema.ArtifactTranslation]).To(Equal(services.StageDone))
			Expect(client.completeCalls).To(Equal(3))
			Expect(client.completePrompts[1]).To(ContainSubstring("translated transcript"))
			Expect(client.completePrompts[2]).To(ContainSubstring("translated transcript"))
		})
	})

	Context("when a chunk fails permanently", func() {
		BeforeEach(func() {
			client.transcribeErrs = []error{&openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}}
		})

		It("aborts the run, reports the chunk and persists nothing", func() {
			res, err := newPipeline().Run(context.Background(), inputPath)
			Expect(err).To(HaveOccurred())

			var stageErr *services.StageError
			Expect(errors.As(err, &stageErr)).To(BeTrue())
			Expect(stageErr.Kind).To(Equal(schema.ArtifactTranscription))

			var te *transcriber.TranscriptionError
			Expect(errors.As(err, &te)).To(BeTrue())
			Expect(te.Chunk).To(Equal(0))

			Expect(res.States[schema.ArtifactTranscription]).To(Equal(services.StageFailed))
			Expect(filepath.Join(outputDir, "standup.transcription.txt")).ToNot(BeAnExistingFile())

			// no spending on dependent stages
			Expect(client.completeCalls).To(BeZero())
			// the failed call is still on the bill
			Expect(res.Cost.Calls()).To(Equal(1))
		})
	})

	Context("when the provider rate limits transiently", func() {
		BeforeEach(func() {
			client.transcribeErrs = []error{
				&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests},
				&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests},
				nil,
			}
		})

		It("retries within the budget and succeeds", func() {
			res, err := newPipeline().Run(context.Background(), inputPath)
			Expect(err).ToNot(HaveOccurred())
			Expect(client.transcribeCalls).To(Equal(3))
			Expect(res.States[schema.ArtifactTranscription]).To(Equal(services.StageDone))
			// every attempt was recorded
			Expect(res.Cost.Calls()).To(Equal(3 + 2))
		})
	})

	Context("with an unknown chat model", func() {
		It("fails before any external call", func() {
			_, err := newPipeline(config.WithChatModel("gpt-imaginary")).Run(context.Background(), inputPath)
			Expect(err).To(MatchError(cost.ErrUnknownModel))
			Expect(client.transcribeCalls).To(BeZero())
			Expect(client.completeCalls).To(BeZero())
		})
	})
})
