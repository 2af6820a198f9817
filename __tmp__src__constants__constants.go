/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package constants holds the FIX tag vocabulary and protocol-level string
// constants shared by the wire encoder/decoder, the session FSM, and the
// replayer.
package constants

import "github.com/quickfixgo/quickfix"

// --- Session-level Message Types ---
const (
	MsgTypeLogon          = "A" // Logon
	MsgTypeLogout         = "5" // Logout
	MsgTypeHeartbeat      = "0" // Heartbeat
	MsgTypeTestRequest    = "1" // Test Request
	MsgTypeResendRequest  = "2" // Resend Request
	MsgTypeSequenceReset  = "4" // Sequence Reset (Gap Fill or Reset)
	MsgTypeReject         = "3" // Session-level Reject
	MsgTypeBusinessReject = "j" // Business Message Reject
)

// --- Protocol Constants ---
const (
	FixBeginString = "FIX.4.4"
	SOH            = byte(0x01)
	EncryptMethodNone = "0"
	PossDupYes        = "Y"
	PossDupNo         = "N"
	GapFillYes        = "Y"
	GapFillNo         = "N"
	ResetSeqNumYes    = "Y"
	ResetSeqNumNo     = "N"
)

// FixTimePrecision controls how many fractional-second digits are appended
// to a SendingTime field.
type FixTimePrecision int

const (
	PrecisionSeconds FixTimePrecision = iota
	PrecisionMillis
	PrecisionMicros
	PrecisionNanos
)

// --- Session Reject Reason (Tag 373) ---
const (
	SessionRejectReasonInvalidTag          = "0"
	SessionRejectReasonRequiredTagMissing  = "1"
	SessionRejectReasonTagNotDefined       = "2"
	SessionRejectReasonUndefinedTag        = "3"
	SessionRejectReasonTagWithoutValue     = "4"
	SessionRejectReasonValueIsIncorrect    = "5"
	SessionRejectReasonIncorrectDataFormat = "6"
	SessionRejectReasonDecryptionProblem   = "7"
	SessionRejectReasonSignatureProblem    = "8"
	SessionRejectReasonCompIDProblem       = "9"
	SessionRejectReasonSendingTimeAccuracy = "10"
	SessionRejectReasonInvalidMsgType      = "11"
)

// --- Standard FIX Tags ---
// Reused from the quickfix.Tag vocabulary,
// extended with the session-level tags the market-data client never sent.
var (
	TagAccount      = quickfix.Tag(1)
	TagBeginSeqNo   = quickfix.Tag(7)
	TagBeginString  = quickfix.Tag(8)
	TagBodyLength   = quickfix.Tag(9)
	TagCheckSum     = quickfix.Tag(10)
	TagEndSeqNo     = quickfix.Tag(16)
	TagMsgSeqNum    = quickfix.Tag(34)
	TagMsgType      = quickfix.Tag(35)
	TagNewSeqNo     = quickfix.Tag(36)
	TagOrigSendingTime = quickfix.Tag(122)
	TagPossDupFlag  = quickfix.Tag(43)
	TagRefSeqNum    = quickfix.Tag(45)
	TagSenderCompId = quickfix.Tag(49)
	TagSendingTime  = quickfix.Tag(52)
	TagTargetCompId = quickfix.Tag(56)
	TagText         = quickfix.Tag(58)
	TagEncryptMethod = quickfix.Tag(98)
	TagHeartBtInt   = quickfix.Tag(108)
	TagTestReqID    = quickfix.Tag(112)
	TagGapFillFlag  = quickfix.Tag(123)
	TagResetSeqNumFlag = quickfix.Tag(141)
	TagRefTagID     = quickfix.Tag(371)
	TagRefMsgType   = quickfix.Tag(372)
	TagSessionRejectReason = quickfix.Tag(373)
)


