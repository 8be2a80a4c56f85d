// errors.go: structured error definitions for the rdpipe bridge
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

import (
	stderrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes for the rdpipe system
const (
	// Plugin lifecycle errors (1000-1099)
	ErrCodeMissingChannelManager = "RDPIPE_1001"
	ErrCodeListenerRegistration  = "RDPIPE_1002"
	ErrCodeNilChannel            = "RDPIPE_1003"
	ErrCodePluginClosed          = "RDPIPE_1004"

	// Channel errors (1100-1199)
	ErrCodeChannelUnresolvable = "CHANNEL_1101"
	ErrCodeChannelWriteFailed  = "CHANNEL_1102"

	// Pipe endpoint errors (1200-1299)
	ErrCodePipeCreateFailed = "PIPE_1201"
	ErrCodePipeAcceptFailed = "PIPE_1202"
	ErrCodePipeWriteFailed  = "PIPE_1203"
	ErrCodePipeUnavailable  = "PIPE_1204"

	// Configuration errors (1300-1399)
	ErrCodeConfigParse      = "CONFIG_1301"
	ErrCodeConfigValidation = "CONFIG_1302"
	ErrCodeConfigFile       = "CONFIG_1303"
	ErrCodeConfigWatcher    = "CONFIG_1304"
)

// Plugin lifecycle error constructors

func NewMissingChannelManagerError() *errors.Error {
	return errors.New(ErrCodeMissingChannelManager, "Missing channel manager").
		WithUserMessage("The host did not provide a channel manager at initialization").
		WithSeverity("error")
}

func NewListenerRegistrationError(channelName string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeListenerRegistration, "Listener registration failed").
		WithUserMessage("The host rejected the channel listener registration").
		WithContext("channel_name", channelName).
		WithSeverity("error")
}

func NewNilChannelError(channelName string) *errors.Error {
	return errors.New(ErrCodeNilChannel, "Missing virtual channel").
		WithUserMessage("The host reported a new channel instance without a channel handle").
		WithContext("channel_name", channelName).
		WithSeverity("error")
}

func NewPluginClosedError() *errors.Error {
	return errors.New(ErrCodePluginClosed, "Plugin closed").
		WithUserMessage("The plugin has been shut down and accepts no further operations").
		WithSeverity("warning")
}

// Channel error constructors

func NewChannelUnresolvableError(channelName string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeChannelUnresolvable, "Channel handle unresolvable").
			WithUserMessage("The virtual channel handle could not be resolved for use").
			WithContext("channel_name", channelName).
			WithSeverity("error")
	}
	return errors.New(ErrCodeChannelUnresolvable, "Channel handle unresolvable").
		WithUserMessage("The virtual channel handle could not be resolved for use").
		WithContext("channel_name", channelName).
		WithSeverity("error")
}

func NewChannelWriteError(channelName string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeChannelWriteFailed, "Channel write failed").
		WithUserMessage("Writing relayed data to the virtual channel failed").
		WithContext("channel_name", channelName).
		WithSeverity("error")
}

// Pipe endpoint error constructors

func NewPipeCreateError(address string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodePipeCreateFailed, "Pipe endpoint creation failed").
		WithUserMessage("The named pipe endpoint could not be created").
		WithContext("pipe_address", address).
		WithSeverity("error")
}

func NewPipeAcceptError(address string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodePipeAcceptFailed, "Pipe accept failed").
		WithUserMessage("Waiting for a local pipe client failed").
		WithContext("pipe_address", address).
		WithSeverity("error")
}

func NewPipeWriteError(channelName string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodePipeWriteFailed, "Pipe write failed").
		WithUserMessage("Writing inbound channel data to the local pipe failed").
		WithContext("channel_name", channelName).
		WithSeverity("error")
}

// NewPipeUnavailableError reports inbound data arriving while no local pipe
// client is connected. This is the non-fatal "unavailable sink" condition:
// the host decides whether to drop or retry, nothing is torn down.
func NewPipeUnavailableError(channelName string) *errors.Error {
	return errors.New(ErrCodePipeUnavailable, "No local pipe client connected").
		WithUserMessage("Inbound channel data arrived while no local pipe client is connected").
		WithContext("channel_name", channelName).
		WithSeverity("warning").
		AsRetryable()
}

// IsPipeUnavailable reports whether err is the non-fatal unavailable-sink
// condition returned by OnDataReceived when no local client is connected.
func IsPipeUnavailable(err error) bool {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.ErrorCode() == errors.ErrorCode(ErrCodePipeUnavailable)
	}
	return false
}

// Configuration error constructors

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParse, "Configuration parse error").
		WithUserMessage("Failed to parse configuration file").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigValidationError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeConfigValidation, "Configuration validation error: "+message).
			WithUserMessage("Configuration validation failed").
			WithSeverity("error")
	}
	return errors.New(ErrCodeConfigValidation, "Configuration validation error: "+message).
		WithUserMessage("Configuration validation failed").
		WithSeverity("error")
}

func NewConfigFileError(path string, message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigFile, "Configuration file error: "+message).
		WithUserMessage("Configuration file access failed").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigWatcherError(message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigWatcher, "Configuration watcher error: "+message).
		WithUserMessage("Configuration monitoring failed").
		WithSeverity("error")
}
