// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client  llms.Model
	config  *ai.Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

// newGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GenerationHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.GenerationModel),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client:  client,
		config:  config,
		limiter: newLimiter(config.RequestsPerSecond),
		logger:  slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate returns the completion for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	o := ai.ResolveGenerateOptions(g.config, opts...)
	return g.complete(ctx, promptContent(prompt, o), o)
}

// GenerateStream streams the completion for prompt to fn.
func (g *Generator) GenerateStream(ctx context.Context, prompt string, fn func(fragment string) error, opts ...ai.GenerateOption) error {
	o := ai.ResolveGenerateOptions(g.config, opts...)
	if err := wait(ctx, g.limiter); err != nil {
		return err
	}

	callOpts := append(callOptions(o), llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		return fn(string(chunk))
	}))

	_, err := g.client.GenerateContent(ctx, promptContent(prompt, o), callOpts...)
	if err != nil {
		g.logger.Error("failed to stream content", "err", err)
		return err
	}
	return nil
}

// Chat returns the assistant reply to messages.
func (g *Generator) Chat(ctx context.Context, messages []core.Message, opts ...ai.GenerateOption) (string, error) {
	o := ai.ResolveGenerateOptions(g.config, opts...)

	content := make([]llms.MessageContent, 0, len(messages)+1)
	if o.SystemPrompt != "" {
		content = append(content, textMessage(llms.ChatMessageTypeSystem, o.SystemPrompt))
	}
	for _, m := range messages {
		content = append(content, textMessage(chatRole(m.Role), m.Content))
	}
	return g.complete(ctx, content, o)
}

func (g *Generator) complete(ctx context.Context, content []llms.MessageContent, o ai.GenerateOptions) (string, error) {
	if err := wait(ctx, g.limiter); err != nil {
		return "", err
	}

	response, err := g.client.GenerateContent(ctx, content, callOptions(o)...)
	if err != nil {
		g.logger.Error("failed to generate content", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		g.logger.Warn("no choices returned from model")
		return "", ai.ErrEmptyResponse
	}

	return response.Choices[0].Content, nil
}

func callOptions(o ai.GenerateOptions) []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(o.Temperature)}
	if o.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(o.MaxTokens))
	}
	return opts
}

func promptContent(prompt string, o ai.GenerateOptions) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, 2)
	if o.SystemPrompt != "" {
		content = append(content, textMessage(llms.ChatMessageTypeSystem, o.SystemPrompt))
	}
	return append(content, textMessage(llms.ChatMessageTypeHuman, prompt))
}

func textMessage(role llms.ChatMessageType, text string) llms.MessageContent {
	return llms.MessageContent{
		Role:  role,
		Parts: []llms.ContentPart{llms.TextPart(text)},
	}
}

func chatRole(role core.Role) llms.ChatMessageType {
	switch role {
	case core.RoleAssistant:
		return llms.ChatMessageTypeAI
	case core.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}
