// Package errors はプロジェクト全体のエラーハンドリングを提供します。
// すべての構造化エラーは cockroachdb/errors でスタックトレースを付与して返され、
// `%+v` で書式化するとスタックトレースが出力されます。
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はスケーラーやモデルが未読み込み・未学習の状態で使用された場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("soilcd: %s: parameters are not loaded. Load or Fit before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
// 特徴量ベクトルとスケーラーの長さ不一致などで発生します。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("soilcd: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は設定値やパラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("soilcd: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("soilcd: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は推論モデルの読み込み・推論に関するエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("soilcd: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("soilcd: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ModelError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("kind", e.Kind).
		Str("type", "ModelError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// MissingFileError は必須ファイル（モデル、スケーラー、入力データ）が存在しない場合のエラーです。
type MissingFileError struct {
	Role string // "model", "scaler", "input"
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("soilcd: cannot find %s file %s", e.Role, e.Path)
}

func (e *MissingFileError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MissingFileError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("role", e.Role).
		Str("path", e.Path).
		Str("type", "MissingFileError")
}

// NewMissingFileError は新しいMissingFileErrorを作成し、スタックトレースを付与します。
func NewMissingFileError(role, path string, err error) error {
	return errors.WithStack(&MissingFileError{Role: role, Path: path, Err: err})
}

// ParseError は入力行の数値変換に失敗した場合のエラーです。
// Line は入力ファイル中の1始まりの行番号、Column は0始まりの列番号です。
type ParseError struct {
	Line   int
	Column int
	Token  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("soilcd: line %d, column %d: cannot convert %q to a number", e.Line, e.Column, e.Token)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ParseError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("line", e.Line).
		Int("column", e.Column).
		Str("token", e.Token).
		Str("type", "ParseError")
}

// NewParseError は新しいParseErrorを作成し、スタックトレースを付与します。
func NewParseError(line, column int, token string, err error) error {
	return errors.WithStack(&ParseError{Line: line, Column: column, Token: token, Err: err})
}

// StateError はパイプラインの操作が現在の状態で許可されていない場合のエラーです。
type StateError struct {
	Op    string
	State string
	Want  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("soilcd: %s: invalid pipeline state %s (want %s)", e.Op, e.State, e.Want)
}

// NewStateError は新しいStateErrorを作成し、スタックトレースを付与します。
func NewStateError(op, state, want string) error {
	return errors.WithStack(&StateError{Op: op, State: state, Want: want})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrNotImplemented は機能が未実装の場合のエラーです。
	ErrNotImplemented = New("not implemented")

	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrClosed は解放済みのハンドルを使用した場合のエラーです。
	ErrClosed = New("handle already released")
)
