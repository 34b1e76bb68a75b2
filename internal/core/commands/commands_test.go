// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/blob"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/codec"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/commands"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/cor"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
	test "github.com/jaycherian/gcp-go-image-captioner/internal/testutil"
)

func newContext(ctx context.Context) cor.Context {
	c := cor.NewBaseContext()
	c.SetContext(ctx)
	return c
}

func uploadEvent(url string) *model.UploadEvent {
	return &model.UploadEvent{Schema: model.SchemaEventGrid, Source: model.SourceReference{URL: url}}
}

func TestSourceReferenceResolver(t *testing.T) {
	cmd := commands.NewSourceReferenceResolver("resolve-reference", "thumbs")
	chCtx := newContext(context.Background())
	chCtx.Add(model.KeyEvent, uploadEvent("https://acct.blob.core.windows.net/images/2024/Cat.JPG?sig=abc"))

	require.True(t, cmd.IsExecutable(chCtx))
	cmd.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.False(t, chCtx.IsHalted())
	job := chCtx.Get(model.KeyJob).(*model.ThumbnailJob)
	assert.Equal(t, "thumbs", job.Container)
	assert.Equal(t, "Cat.JPG", job.Destination)
	assert.Equal(t, codec.JPEG, job.Codec)
}

func TestSourceReferenceResolverHaltsOnUnsupportedFormat(t *testing.T) {
	cmd := commands.NewSourceReferenceResolver("resolve-reference", "thumbs")
	chCtx := newContext(context.Background())
	chCtx.Add(model.KeyEvent, uploadEvent("gs://uploads/report.pdf"))

	cmd.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, string(model.OutcomeUnsupportedFormat), chCtx.GetHaltReason())
	job := chCtx.Get(model.KeyJob).(*model.ThumbnailJob)
	assert.Equal(t, "report.pdf", job.Destination)
}

func TestSourceReferenceResolverRejectsBadReference(t *testing.T) {
	cmd := commands.NewSourceReferenceResolver("resolve-reference", "thumbs")
	chCtx := newContext(context.Background())
	chCtx.Add(model.KeyEvent, uploadEvent("https://acct.blob.core.windows.net/images/"))

	cmd.Execute(chCtx)

	err := chCtx.GetErrors()["resolve-reference"]
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindInvalidReference))
	assert.Nil(t, chCtx.Get(model.KeyJob))
}

func TestSourcePresenceCheck(t *testing.T) {
	cmd := commands.NewSourcePresenceCheck("check-source")

	t.Run("bytes are kept", func(t *testing.T) {
		chCtx := newContext(context.Background())
		chCtx.Add(model.KeySource, strings.NewReader("image bytes"))
		require.True(t, cmd.IsExecutable(chCtx))
		cmd.Execute(chCtx)
		assert.False(t, chCtx.IsHalted())
		data, err := io.ReadAll(chCtx.Get(model.KeySource).(io.Reader))
		require.NoError(t, err)
		assert.Equal(t, "image bytes", string(data))
	})

	for name, source := range map[string]io.Reader{
		"absent":     nil,
		"empty":      strings.NewReader(""),
		"unreadable": iotest.ErrReader(errors.New("connection reset")),
	} {
		t.Run(name, func(t *testing.T) {
			chCtx := newContext(context.Background())
			if source != nil {
				chCtx.Add(model.KeySource, source)
			}
			require.True(t, cmd.IsExecutable(chCtx))
			cmd.Execute(chCtx)
			assert.Equal(t, string(model.OutcomeNoFileInput), chCtx.GetHaltReason())
			assert.False(t, chCtx.HasErrors())
		})
	}

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		chCtx := newContext(ctx)
		chCtx.Add(model.KeySource, iotest.ErrReader(context.Canceled))
		cmd.Execute(chCtx)
		assert.True(t, model.IsKind(chCtx.GetErrors()["check-source"], model.KindCanceled))
		assert.False(t, chCtx.IsHalted())
	})
}

func TestSourceBytesReader(t *testing.T) {
	cmd := commands.NewSourceBytesReader("read-source")

	t.Run("bytes", func(t *testing.T) {
		chCtx := newContext(context.Background())
		chCtx.Add(model.KeySource, strings.NewReader("image bytes"))
		cmd.Execute(chCtx)
		assert.Equal(t, []byte("image bytes"), chCtx.Get(model.KeySourceBytes))
		assert.False(t, chCtx.IsHalted())
	})

	t.Run("empty", func(t *testing.T) {
		chCtx := newContext(context.Background())
		chCtx.Add(model.KeySource, strings.NewReader(""))
		cmd.Execute(chCtx)
		assert.Equal(t, string(model.OutcomeNoFileInput), chCtx.GetHaltReason())
		assert.False(t, chCtx.HasErrors())
	})

	t.Run("unreadable", func(t *testing.T) {
		chCtx := newContext(context.Background())
		chCtx.Add(model.KeySource, iotest.ErrReader(errors.New("connection reset")))
		cmd.Execute(chCtx)
		assert.Equal(t, string(model.OutcomeNoFileInput), chCtx.GetHaltReason())
		assert.False(t, chCtx.HasErrors())
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		chCtx := newContext(ctx)
		chCtx.Add(model.KeySource, iotest.ErrReader(context.Canceled))
		cmd.Execute(chCtx)
		err := chCtx.GetErrors()["read-source"]
		assert.True(t, model.IsKind(err, model.KindCanceled))
		assert.False(t, chCtx.IsHalted())
	})

	t.Run("absent", func(t *testing.T) {
		chCtx := newContext(context.Background())
		assert.False(t, cmd.IsExecutable(chCtx))
	})
}

func TestCaptionAnalyzer(t *testing.T) {
	captioner := &test.FakeCaptioner{Text: "a red bicycle"}
	cmd := commands.NewCaptionAnalyzer("analyze-image", captioner)
	chCtx := newContext(context.Background())
	chCtx.Add(model.KeySourceBytes, []byte("png"))

	cmd.Execute(chCtx)

	caption := chCtx.Get(model.KeyCaption).(model.Caption)
	assert.Equal(t, "a red bicycle", caption.Text)
	assert.Equal(t, 1, captioner.Calls())
}

func TestCaptionAnalyzerFailure(t *testing.T) {
	failure := model.NewError(model.KindAnalysisFailed, "analyze", "quota exhausted")
	cmd := commands.NewCaptionAnalyzer("analyze-image", &test.FakeCaptioner{Err: failure})
	chCtx := newContext(context.Background())
	chCtx.Add(model.KeySourceBytes, []byte("png"))

	cmd.Execute(chCtx)

	assert.ErrorIs(t, chCtx.GetErrors()["analyze-image"], failure)
	assert.Nil(t, chCtx.Get(model.KeyCaption))
}

type stubComposer struct {
	got   codec.Codec
	text  string
	err   error
	thumb *model.Thumbnail
}

func (s *stubComposer) Compose(_ []byte, c codec.Codec, caption model.Caption) (*model.Thumbnail, error) {
	s.got, s.text = c, caption.Text
	return s.thumb, s.err
}

func composeContext() cor.Context {
	chCtx := newContext(context.Background())
	chCtx.Add(model.KeySourceBytes, []byte("png"))
	chCtx.Add(model.KeyJob, &model.ThumbnailJob{Container: "thumbs", Destination: "cat.png", Codec: codec.PNG})
	chCtx.Add(model.KeyCaption, model.Caption{Text: "a cat"})
	return chCtx
}

func TestThumbnailComposer(t *testing.T) {
	composer := &stubComposer{thumb: &model.Thumbnail{Data: []byte("thumb"), Width: 4, Height: 6, ContentType: "image/png"}}
	cmd := commands.NewThumbnailComposer("compose-thumbnail", composer)
	chCtx := composeContext()

	require.True(t, cmd.IsExecutable(chCtx))
	cmd.Execute(chCtx)

	assert.Equal(t, codec.PNG, composer.got)
	assert.Equal(t, "a cat", composer.text)
	assert.Same(t, composer.thumb, chCtx.Get(model.KeyThumbnail))
}

func TestThumbnailComposerNeedsCaption(t *testing.T) {
	cmd := commands.NewThumbnailComposer("compose-thumbnail", &stubComposer{})
	chCtx := composeContext()
	chCtx.Remove(model.KeyCaption)
	assert.False(t, cmd.IsExecutable(chCtx))
}

func TestThumbnailComposerFailure(t *testing.T) {
	decode := model.NewError(model.KindDecodeError, "compose", "truncated png")
	cmd := commands.NewThumbnailComposer("compose-thumbnail", &stubComposer{err: decode})
	chCtx := composeContext()

	cmd.Execute(chCtx)

	assert.ErrorIs(t, chCtx.GetErrors()["compose-thumbnail"], decode)
	assert.Nil(t, chCtx.Get(model.KeyThumbnail))
}

type brokenStore struct{}

func (brokenStore) Write(context.Context, string, string, []byte, string) error {
	return errors.New("bucket not found")
}

func (brokenStore) Read(context.Context, model.SourceReference) (io.ReadCloser, error) {
	return nil, errors.New("unused")
}

func uploadContext() cor.Context {
	chCtx := newContext(context.Background())
	chCtx.Add(model.KeyJob, &model.ThumbnailJob{Container: "thumbs", Destination: "cat.png", Codec: codec.PNG})
	chCtx.Add(model.KeyThumbnail, &model.Thumbnail{Data: []byte("thumb"), ContentType: "image/png"})
	return chCtx
}

func TestThumbnailUpload(t *testing.T) {
	store := blob.NewMemoryStore()
	cmd := commands.NewThumbnailUpload("write-thumbnail", store)
	chCtx := uploadContext()

	require.True(t, cmd.IsExecutable(chCtx))
	cmd.Execute(chCtx)
	cmd.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	obj, ok := store.Get("thumbs", "cat.png")
	require.True(t, ok)
	assert.Equal(t, "thumb", string(obj.Data))
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, []string{"cat.png"}, store.Names("thumbs"))
	assert.Equal(t, 2, store.Writes())
}

func TestThumbnailUploadFailure(t *testing.T) {
	cmd := commands.NewThumbnailUpload("write-thumbnail", brokenStore{})
	chCtx := uploadContext()

	cmd.Execute(chCtx)

	err := chCtx.GetErrors()["write-thumbnail"]
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindStoreWriteFailed))
	assert.ErrorContains(t, err, "bucket not found")
}
