package fixture

// Central Texas sample data. Coordinates are the published values for each
// facility.

var SampleAirports = []Airport{
	{ID: "AUS", Name: "AUSTIN-BERGSTROM INTL", Lat: "30-11-40.5100N", Lon: "097-40-11.3800W", Elev: "542"},
	{ID: "GTU", Name: "GEORGETOWN EXECUTIVE", Lat: "30-40-44.7000N", Lon: "097-40-46.3000W", Elev: "790"},
	{ID: "T74", Name: "TAYLOR MUNI", Lat: "30-34-23.0000N", Lon: "097-26-35.0000W", Elev: ""},
	{ID: "E82", Name: "PEÑASCO RANCH", Lat: "30-20-09.0000N", Lon: "098-12-04.0000W", Elev: "1310"},
}

var SampleNavaids = []Navaid{
	{ID: "CWK", Type: "VORTAC", Name: "CENTEX", Lat: "30-22-43.060N", Lon: "097-31-48.710W"},
	{ID: "AUS", Type: "VOR/DME", Name: "AUSTIN", Lat: "30-17-52.690N", Lon: "097-42-05.060W"},
	{ID: "LZZ", Type: "NDB", Name: "LAMPASAS", Lat: "31-06-16.000N", Lon: "098-11-44.000W"},
}

var SampleFixes = []Fix{
	{ID: "ADDAX", Lat: "30-14-28.170N", Lon: "097-33-11.220W"},
	{ID: "BRSTO", Lat: "30-05-39.980N", Lon: "097-51-03.630W"},
}

var SampleObstacles = []Obstacle{
	{OAS: "48-012345", State: "tx", City: "AUSTIN", Lat: "30 19 30.00N", Lon: "097 48 08.00W", AGL: "01049"},
	{OAS: "48-023456", State: "TX", City: "MANOR", Lat: "30 20 46.00N", Lon: "097 33 20.00W", AGL: "00725"},
	{OAS: "48-034567", State: "TX", City: "ELGIN", Lat: "30 21 02.00N", Lon: "097 22 14.00W", AGL: "00199"},
}
