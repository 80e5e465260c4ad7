package model

// EstimatorState はモデルやスケーラーのライフサイクル状態を表す
type EstimatorState int

const (
	// NotFitted はパラメータが未読み込みの状態
	NotFitted EstimatorState = iota
	// Fitted はパラメータが読み込み済み（または学習済み）で使用可能な状態
	Fitted
	// Released はリソースが解放され、以後使用できない状態
	Released
)

// String は状態名を返す
func (s EstimatorState) String() string {
	switch s {
	case NotFitted:
		return "not_fitted"
	case Fitted:
		return "fitted"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// BaseEstimator はスケーラーと推論エンジンに埋め込まれる共通の状態
type BaseEstimator struct {
	state EstimatorState
}

// IsFitted は使用可能な状態かどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted は使用可能な状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// IsReleased は解放済みかどうかを返す
func (e *BaseEstimator) IsReleased() bool {
	return e.state == Released
}

// Release は解放済み状態に設定する。すでに解放済みの場合は false を返す
func (e *BaseEstimator) Release() bool {
	if e.state == Released {
		return false
	}
	e.state = Released
	return true
}

// State は現在の状態を返す
func (e *BaseEstimator) State() EstimatorState {
	return e.state
}

// Reset は初期状態に戻す
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}
