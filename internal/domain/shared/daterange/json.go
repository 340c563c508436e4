package daterange

import "encoding/json"

type wireRange struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

func (dr DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRange{
		CheckIn:  dr.CheckIn.Format(DateLayout),
		CheckOut: dr.CheckOut.Format(DateLayout),
	})
}

func (dr *DateRange) UnmarshalJSON(data []byte) error {
	var w wireRange
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := Parse(w.CheckIn, w.CheckOut)
	if err != nil {
		return err
	}
	*dr = parsed
	return nil
}
