package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/cmab"
	"github.com/BarkinBalci/feature-flag-events/internal/domain"
	"github.com/BarkinBalci/feature-flag-events/internal/dto"
	"github.com/BarkinBalci/feature-flag-events/internal/event"
	"github.com/BarkinBalci/feature-flag-events/internal/notification"
	"github.com/BarkinBalci/feature-flag-events/internal/projectconfig"
)

const ruleTypeExperiment = "experiment"

var (
	ErrNotCmabRule      = errors.New("rule is not a CMAB rule")
	ErrUnknownVariation = errors.New("variation not found in rule")
)

// ExperimentationService makes decisions and records the resulting events
type ExperimentationService struct {
	config    projectconfig.ProjectConfig
	decisions DecisionResolver
	processor EventProcessor
	notifier  Notifier
	factory   *event.Factory
	log       *zap.Logger
}

// NewExperimentationService creates a new experimentation service
func NewExperimentationService(config projectconfig.ProjectConfig, decisions DecisionResolver, processor EventProcessor, notifier Notifier, log *zap.Logger) *ExperimentationService {
	return &ExperimentationService{
		config:    config,
		decisions: decisions,
		processor: processor,
		notifier:  notifier,
		factory:   event.NewFactory(),
		log:       log,
	}
}

// DecideCmab resolves the variation of a CMAB rule for the user. Forced
// decisions take precedence over the bandit service.
func (s *ExperimentationService) DecideCmab(ctx context.Context, req *dto.DecideRequest) (*dto.DecideResponse, error) {
	experiment, ok := s.config.ExperimentByKey(req.RuleKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", projectconfig.ErrExperimentNotFound, req.RuleKey)
	}
	if !experiment.IsCmab() {
		return nil, fmt.Errorf("%w: %s", ErrNotCmabRule, req.RuleKey)
	}

	user := newUserContext(req)

	variation, reasons := s.forcedVariation(experiment, user, req.FlagKey)
	var cmabUUID string

	if variation == nil {
		decision, decisionReasons, err := s.decisions.GetDecision(ctx, s.config, user, experiment.ID, toOptions(req.Options))
		reasons = append(reasons, decisionReasons...)
		if err != nil {
			return nil, err
		}

		variation, ok = experiment.VariationByID(decision.VariationID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVariation, decision.VariationID)
		}
		cmabUUID = decision.CmabUUID
	}

	if !req.DisableDecisionEvent {
		impression := s.factory.CreateImpressionEvent(s.config, event.ImpressionParams{
			Experiment: experiment,
			Variation:  variation,
			FlagKey:    req.FlagKey,
			RuleKey:    experiment.Key,
			RuleType:   ruleTypeExperiment,
			Enabled:    variation.FeatureEnabled,
			CmabUUID:   cmabUUID,
			UserID:     user.UserID,
			Attributes: user.Attributes,
		})
		s.processor.Process(impression)
	}

	s.notifier.Send(notification.Decision, notification.DecisionPayload{
		Type:       "flag",
		UserID:     user.UserID,
		Attributes: user.Attributes,
		DecisionInfo: map[string]any{
			"flagKey":      req.FlagKey,
			"ruleKey":      experiment.Key,
			"variationKey": variation.Key,
			"enabled":      variation.FeatureEnabled,
			"reasons":      reasons,
		},
	})

	s.log.Debug("CMAB decision made",
		zap.String("user_id", user.UserID),
		zap.String("rule_key", experiment.Key),
		zap.String("variation_key", variation.Key))

	return &dto.DecideResponse{
		FlagKey:      req.FlagKey,
		RuleKey:      experiment.Key,
		VariationKey: variation.Key,
		VariationID:  variation.ID,
		Enabled:      variation.FeatureEnabled,
		CmabUUID:     cmabUUID,
		Reasons:      reasons,
	}, nil
}

// Track queues a conversion event for the user
func (s *ExperimentationService) Track(ctx context.Context, req *dto.TrackRequest) (*dto.TrackResponse, error) {
	conversion, err := s.factory.CreateConversionEvent(s.config, req.EventKey, req.UserID, req.Attributes, req.Tags)
	if err != nil {
		s.log.Warn("Failed to create conversion event",
			zap.String("event_key", req.EventKey),
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return nil, err
	}

	s.processor.Process(conversion)

	s.notifier.Send(notification.Track, notification.TrackPayload{
		EventKey:   req.EventKey,
		UserID:     req.UserID,
		Attributes: req.Attributes,
		EventTags:  req.Tags,
		Event:      conversion,
	})

	return &dto.TrackResponse{
		EventUUID: conversion.EventUUID(),
		Status:    "accepted",
	}, nil
}

// Flush asks the processor to send whatever it has batched
func (s *ExperimentationService) Flush() {
	s.processor.Flush()
}

// forcedVariation looks up a rule-level forced decision, then a flag-level one
func (s *ExperimentationService) forcedVariation(experiment *domain.Experiment, user domain.UserContext, flagKey string) (*domain.Variation, []string) {
	var reasons []string

	keys := []domain.ForcedDecisionKey{
		{FlagKey: flagKey, RuleKey: experiment.Key},
		{FlagKey: flagKey},
	}
	for _, key := range keys {
		variationKey, ok := user.ForcedDecisions.Get(key)
		if !ok {
			continue
		}

		variation, ok := experiment.VariationByKey(variationKey)
		if !ok {
			reasons = append(reasons, fmt.Sprintf("Invalid variation is mapped to flag (%s), rule (%s) and user (%s) in the forced decision map.",
				flagKey, key.RuleKey, user.UserID))
			continue
		}

		reasons = append(reasons, fmt.Sprintf("Variation (%s) is mapped to flag (%s), rule (%s) and user (%s) in the forced decision map.",
			variationKey, flagKey, key.RuleKey, user.UserID))
		return variation, reasons
	}

	return nil, reasons
}

func newUserContext(req *dto.DecideRequest) domain.UserContext {
	user := domain.UserContext{
		UserID:          req.UserID,
		Attributes:      req.Attributes,
		ForcedDecisions: make(domain.ForcedDecisions, len(req.ForcedDecisions)),
	}
	if user.Attributes == nil {
		user.Attributes = map[string]any{}
	}
	for _, fd := range req.ForcedDecisions {
		user.ForcedDecisions.Set(domain.ForcedDecisionKey{FlagKey: fd.FlagKey, RuleKey: fd.RuleKey}, fd.VariationKey)
	}
	return user
}

func toOptions(options []string) []cmab.Option {
	opts := make([]cmab.Option, 0, len(options))
	for _, o := range options {
		opts = append(opts, cmab.Option(o))
	}
	return opts
}
