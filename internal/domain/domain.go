package domain

import (
	"github.com/splitlab/splitlab-backend/internal/domain/artifacts"
	"github.com/splitlab/splitlab-backend/internal/domain/modules"
)

type Upload = artifacts.Upload
type Split = artifacts.Split
type Asset = artifacts.Asset
type TestRun = artifacts.TestRun
type ReviewFeedback = artifacts.ReviewFeedback
type ValidationRecord = artifacts.ValidationRecord

type ModuleVersion = modules.ModuleVersion
type ChangeLogEntry = modules.ChangeLogEntry
type VersionSummary = modules.VersionSummary

const (
	SplitStatusPending    = artifacts.SplitStatusPending
	SplitStatusProcessing = artifacts.SplitStatusProcessing
	SplitStatusCompleted  = artifacts.SplitStatusCompleted
	SplitStatusFailed     = artifacts.SplitStatusFailed

	AssetKindJSON      = artifacts.AssetKindJSON
	AssetKindImageCrop = artifacts.AssetKindImageCrop
	AssetKindHTML      = artifacts.AssetKindHTML
	AssetKindCSS       = artifacts.AssetKindCSS
	AssetKindOther     = artifacts.AssetKindOther

	VersionStatusDraft    = modules.VersionStatusDraft
	VersionStatusPackaged = modules.VersionStatusPackaged
	VersionStatusDeployed = modules.VersionStatusDeployed
	VersionStatusActive   = modules.VersionStatusActive
	VersionStatusInactive = modules.VersionStatusInactive
	VersionStatusArchived = modules.VersionStatusArchived
)

var (
	ValidSplitStatus    = artifacts.ValidSplitStatus
	TerminalSplitStatus = artifacts.TerminalSplitStatus
	ValidVersionStatus  = modules.ValidVersionStatus
)
