package events

import (
	"encoding/json"
	"fmt"
)

// SetStatusChangedData sets the Data field with StatusChangedData in a type-safe way.
func (e *TaskEvent) SetStatusChangedData(data StatusChangedData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert StatusChangedData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetStatusChangedData retrieves StatusChangedData from the Data field.
func (e *TaskEvent) GetStatusChangedData() (*StatusChangedData, error) {
	var data StatusChangedData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse StatusChangedData: %w", err)
	}
	return &data, nil
}

// SetTaskUpdatedData sets the Data field with TaskUpdatedData in a type-safe way.
func (e *TaskEvent) SetTaskUpdatedData(data TaskUpdatedData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert TaskUpdatedData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetTaskUpdatedData retrieves TaskUpdatedData from the Data field.
func (e *TaskEvent) GetTaskUpdatedData() (*TaskUpdatedData, error) {
	var data TaskUpdatedData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse TaskUpdatedData: %w", err)
	}
	return &data, nil
}

// SetPlanRegeneratedData sets the Data field with PlanRegeneratedData in a type-safe way.
func (e *TaskEvent) SetPlanRegeneratedData(data PlanRegeneratedData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert PlanRegeneratedData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetPlanRegeneratedData retrieves PlanRegeneratedData from the Data field.
func (e *TaskEvent) GetPlanRegeneratedData() (*PlanRegeneratedData, error) {
	var data PlanRegeneratedData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse PlanRegeneratedData: %w", err)
	}
	return &data, nil
}

// SetPlanGenerationFailedData sets the Data field with PlanGenerationFailedData in a type-safe way.
func (e *TaskEvent) SetPlanGenerationFailedData(data PlanGenerationFailedData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert PlanGenerationFailedData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetPlanGenerationFailedData retrieves PlanGenerationFailedData from the Data field.
func (e *TaskEvent) GetPlanGenerationFailedData() (*PlanGenerationFailedData, error) {
	var data PlanGenerationFailedData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse PlanGenerationFailedData: %w", err)
	}
	return &data, nil
}

// structToMap converts a struct to map[string]interface{} using JSON marshaling.
func structToMap(data interface{}) (map[string]interface{}, error) {
	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(bytes, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// mapToStruct converts a map[string]interface{} to a struct using JSON unmarshaling.
func mapToStruct(dataMap map[string]interface{}, target interface{}) error {
	bytes, err := json.Marshal(dataMap)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, target)
}
