package message

import (
	"encoding/json"
	"fmt"
)

// EncodeManager serializes m into its wire envelope.
func EncodeManager(m ManagerMessage) ([]byte, error) {
	return encode(m.Method(), m)
}

// EncodeButton serializes m into its wire envelope.
func EncodeButton(m ButtonMessage) ([]byte, error) {
	return encode(m.Method(), m)
}

func encode(method string, args any) ([]byte, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("message: marshal %s arguments: %w", method, err)
	}
	data, err := json.Marshal(Envelope{Method: method, Arguments: raw})
	if err != nil {
		return nil, fmt.Errorf("message: marshal %s envelope: %w", method, err)
	}
	return data, nil
}

// DecodeManager parses a manager message envelope.
func DecodeManager(data []byte) (ManagerMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("message: parse envelope: %w", err)
	}
	switch env.Method {
	case MethodManagerDidRestoreState:
		return ManagerDidRestoreState{}, nil
	case MethodDidUpdateState:
		var m DidUpdateState
		if err := decodeArgs(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, &UnknownMethodError{Method: env.Method}
	}
}

// DecodeButton parses a button message envelope.
func DecodeButton(data []byte) (ButtonMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("message: parse envelope: %w", err)
	}

	switch env.Method {
	case MethodButtonDidConnect:
		return decodeButton[ButtonDidConnect](env)
	case MethodButtonIsReady:
		return decodeButton[ButtonIsReady](env)
	case MethodButtonDidDisconnectWithError:
		return decodeButton[ButtonDidDisconnectWithError](env)
	case MethodButtonDidFailToConnectWithError:
		return decodeButton[ButtonDidFailToConnectWithError](env)
	case MethodButtonDidReceiveButtonDown:
		return decodeButton[ButtonDidReceiveButtonDown](env)
	case MethodButtonDidReceiveButtonUp:
		return decodeButton[ButtonDidReceiveButtonUp](env)
	case MethodButtonDidReceiveButtonClick:
		return decodeButton[ButtonDidReceiveButtonClick](env)
	case MethodButtonDidReceiveButtonDoubleClick:
		return decodeButton[ButtonDidReceiveButtonDoubleClick](env)
	case MethodButtonDidReceiveButtonHold:
		return decodeButton[ButtonDidReceiveButtonHold](env)
	case MethodButtonDidUnpairWithError:
		return decodeButton[ButtonDidUnpairWithError](env)
	case MethodButtonDidUpdateBatteryVoltage:
		return decodeButton[ButtonDidUpdateBatteryVoltage](env)
	case MethodButtonDidUpdateNickname:
		return decodeButton[ButtonDidUpdateNickname](env)
	default:
		return nil, &UnknownMethodError{Method: env.Method}
	}
}

func decodeButton[T ButtonMessage](env Envelope) (ButtonMessage, error) {
	var m T
	if err := decodeArgs(env, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeArgs(env Envelope, v any) error {
	if len(env.Arguments) == 0 || string(env.Arguments) == "null" {
		return fmt.Errorf("message: %s: missing arguments", env.Method)
	}
	if err := json.Unmarshal(env.Arguments, v); err != nil {
		return fmt.Errorf("message: %s arguments: %w", env.Method, err)
	}
	return nil
}
