package gemini

import (
	"context"
	"errors"
	"testing"

	"fridge-helper/internal/core/ai/provider"
	"fridge-helper/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	text   string
	err    error
	model  string
	config *genai.GenerateContentConfig
	images *genai.GenerateImagesResponse
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func (f *fakeModels) GenerateImages(_ context.Context, model string, _ string, _ *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.model = model
	if f.err != nil {
		return nil, f.err
	}
	return f.images, nil
}

func TestTextGeneratorJSONMode(t *testing.T) {
	fake := &fakeModels{text: "  {\"recipes\":[]}  "}
	gen := &TextGenerator{models: fake, model: "gemini-2.5-flash"}

	out, err := gen.Generate(context.Background(), "prompt", provider.Options{Temperature: 0.6, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"recipes":[]}`, out)
	assert.Equal(t, "gemini-2.5-flash", fake.model)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
	require.NotNil(t, fake.config.Temperature)
	assert.InDelta(t, 0.6, *fake.config.Temperature, 0.0001)
}

func TestTextGeneratorPlainMode(t *testing.T) {
	fake := &fakeModels{text: "hello"}
	gen := &TextGenerator{models: fake, model: "m"}

	_, err := gen.Generate(context.Background(), "prompt", provider.Options{})
	require.NoError(t, err)
	assert.Empty(t, fake.config.ResponseMIMEType)
}

func TestTextGeneratorErrors(t *testing.T) {
	gen := &TextGenerator{models: &fakeModels{err: errors.New("boom")}, model: "m"}
	_, err := gen.Generate(context.Background(), "p", provider.Options{})
	assert.ErrorContains(t, err, "boom")

	gen = &TextGenerator{models: &fakeModels{text: "   "}, model: "m"}
	_, err = gen.Generate(context.Background(), "p", provider.Options{})
	assert.Error(t, err)
}

func TestImageGenerator(t *testing.T) {
	fake := &fakeModels{images: &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{
			Image: &genai.Image{ImageBytes: []byte{1, 2, 3}},
		}},
	}}
	gen := &ImageGenerator{models: fake, model: "imagen-4.0-generate-001"}

	img, err := gen.GenerateImage(context.Background(), "a dish")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "imagen-4.0-generate-001", gen.Model())
}

func TestImageGeneratorNoImage(t *testing.T) {
	gen := &ImageGenerator{models: &fakeModels{images: &genai.GenerateImagesResponse{}}, model: "m"}
	_, err := gen.GenerateImage(context.Background(), "p")
	assert.ErrorIs(t, err, common.ErrNoImageData)

	gen = &ImageGenerator{models: &fakeModels{images: &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{RAIFilteredReason: "blocked"}},
	}}, model: "m"}
	_, err = gen.GenerateImage(context.Background(), "p")
	assert.ErrorIs(t, err, common.ErrNoImageData)
}
