package shapefile

// esriWKTs are the .prj contents of the coordinate reference systems that
// rasters and inputs are commonly in, keyed by EPSG code.
var esriWKTs = map[int]string{
	2154: `PROJCS["RGF_1993_Lambert_93",` +
		`GEOGCS["GCS_RGF_1993",DATUM["D_RGF_1993",SPHEROID["GRS_1980",6378137.0,298.257222101]],` +
		`PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],` +
		`PROJECTION["Lambert_Conformal_Conic"],` +
		`PARAMETER["False_Easting",700000.0],PARAMETER["False_Northing",6600000.0],` +
		`PARAMETER["Central_Meridian",3.0],` +
		`PARAMETER["Standard_Parallel_1",49.0],PARAMETER["Standard_Parallel_2",44.0],` +
		`PARAMETER["Latitude_Of_Origin",46.5],UNIT["Meter",1.0]]`,
	3035: `PROJCS["ETRS89_ETRS_LAEA",` +
		`GEOGCS["GCS_ETRS_1989",DATUM["D_ETRS_1989",SPHEROID["GRS_1980",6378137.0,298.257222101]],` +
		`PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],` +
		`PROJECTION["Lambert_Azimuthal_Equal_Area"],` +
		`PARAMETER["false_easting",4321000.0],PARAMETER["false_northing",3210000.0],` +
		`PARAMETER["central_meridian",10.0],PARAMETER["latitude_of_origin",52.0],UNIT["Meter",1.0]]`,
	4326: `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],` +
		`PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`,
}
